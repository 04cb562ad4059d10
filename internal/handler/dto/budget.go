package dto

import "github.com/budgetly/budgetly/internal/model"

// BudgetRequest is the body of budget create and update requests.
type BudgetRequest struct {
	Name string `json:"name" jsonschema:"minLength=1,maxLength=255"`
}

// BudgetResponse represents a budget in API responses.
type BudgetResponse = model.Budget

// BudgetMemberResponse represents a budget member in API responses.
type BudgetMemberResponse = model.BudgetMember

// ToBudgetList converts budgets to a response slice that encodes as [] when empty.
func ToBudgetList(budgets []*model.Budget) []*BudgetResponse {
	if budgets == nil {
		return []*BudgetResponse{}
	}
	return budgets
}
