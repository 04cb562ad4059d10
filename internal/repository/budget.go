package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/budgetly/budgetly/internal/model"
)

// ErrBudgetNotFound is returned when no budget matches both the id and the
// owner. It does not distinguish a missing budget from someone else's.
var ErrBudgetNotFound = errors.New("budget not found")

const budgetColumns = `budget_id, name, creator_id, created_at, updated_at`

// CreateBudget inserts a budget for owner and records the owner as a member,
// in one transaction. The owner's user row is upserted first so the foreign
// key always holds.
func (r *Repository) CreateBudget(ctx context.Context, owner *model.User, name string) (*model.Budget, error) {
	now := time.Now().UTC()
	budget := &model.Budget{
		ID:        uuid.New(),
		Name:      name,
		CreatorID: owner.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := upsertUser(ctx, tx, owner); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO budgets (budget_id, name, creator_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, budget.ID, budget.Name, budget.CreatorID, budget.CreatedAt, budget.UpdatedAt); err != nil {
			if isForeignKeyViolation(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to create budget: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO budget_members (budget_id, user_id, role, joined_at)
			VALUES ($1, $2, $3, $4)
		`, budget.ID, budget.CreatorID, string(model.RoleOwner), now); err != nil {
			return fmt.Errorf("failed to add budget owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

// ListBudgets returns the budgets created by owner, newest first.
func (r *Repository) ListBudgets(ctx context.Context, ownerID uuid.UUID) ([]*model.Budget, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE creator_id = $1
		ORDER BY created_at DESC, budget_id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	budgets := make([]*model.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate budgets: %w", err)
	}
	return budgets, nil
}

// GetBudget returns the budget with id if it is owned by ownerID.
func (r *Repository) GetBudget(ctx context.Context, ownerID, id uuid.UUID) (*model.Budget, error) {
	b, err := scanBudget(r.db.QueryRow(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE budget_id = $1 AND creator_id = $2
	`, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return b, nil
}

// UpdateBudgetName renames a budget owned by ownerID and returns the stored row.
func (r *Repository) UpdateBudgetName(ctx context.Context, ownerID, id uuid.UUID, name string) (*model.Budget, error) {
	b, err := scanBudget(r.db.QueryRow(ctx, `
		UPDATE budgets
		SET name = $3, updated_at = $4
		WHERE budget_id = $1 AND creator_id = $2
		RETURNING `+budgetColumns+`
	`, id, ownerID, name, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("failed to update budget: %w", err)
	}
	return b, nil
}

// DeleteBudget removes a budget owned by ownerID. Memberships cascade.
func (r *Repository) DeleteBudget(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM budgets
		WHERE budget_id = $1 AND creator_id = $2
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBudgetNotFound
	}
	return nil
}

func scanBudget(row pgx.Row) (*model.Budget, error) {
	var b model.Budget
	if err := row.Scan(&b.ID, &b.Name, &b.CreatorID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
