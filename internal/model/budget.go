package model

import (
	"time"

	"github.com/google/uuid"
)

// Budget is a named grouping entity owned by exactly one creator.
type Budget struct {
	ID        uuid.UUID `json:"budget_id"`
	Name      string    `json:"name"`
	CreatorID uuid.UUID `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberRole is the role a user holds within a budget.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleEditor MemberRole = "editor"
	RoleViewer MemberRole = "viewer"
)

// IsValid reports whether the role is one of the known roles.
func (r MemberRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// BudgetMember links a user to a budget. Membership does not grant access
// to budget CRUD.
type BudgetMember struct {
	BudgetID uuid.UUID  `json:"budget_id"`
	UserID   uuid.UUID  `json:"user_id"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}
