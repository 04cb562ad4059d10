package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/budgetly/budgetly/internal/model"
)

// ListBudgetMembers returns the members of a budget owned by ownerID.
// A budget the owner does not hold yields ErrBudgetNotFound.
func (r *Repository) ListBudgetMembers(ctx context.Context, ownerID, budgetID uuid.UUID) ([]*model.BudgetMember, error) {
	if _, err := r.GetBudget(ctx, ownerID, budgetID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT budget_id, user_id, role, joined_at
		FROM budget_members
		WHERE budget_id = $1
		ORDER BY joined_at, user_id
	`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget members: %w", err)
	}
	defer rows.Close()

	members := make([]*model.BudgetMember, 0)
	for rows.Next() {
		var (
			m    model.BudgetMember
			role string
		)
		if err := rows.Scan(&m.BudgetID, &m.UserID, &role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget member: %w", err)
		}
		m.Role = model.MemberRole(role)
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate budget members: %w", err)
	}
	return members, nil
}
