// Package repositorytest provides an in-memory repository for tests.
package repositorytest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/budgetly/budgetly/internal/model"
	"github.com/budgetly/budgetly/internal/repository"
)

// Memory is an in-memory repository with the same ownership semantics as
// the SQL implementation. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	users   map[uuid.UUID]model.User
	budgets map[uuid.UUID]model.Budget
	members map[uuid.UUID][]model.BudgetMember
	err     error
}

// New returns an empty Memory.
func New() *Memory {
	return &Memory{
		users:   make(map[uuid.UUID]model.User),
		budgets: make(map[uuid.UUID]model.Budget),
		members: make(map[uuid.UUID][]model.BudgetMember),
	}
}

// UpsertUser mirrors a user.
func (r *Memory) UpsertUser(_ context.Context, u *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertLocked(u)
}

func (r *Memory) upsertLocked(u *model.User) (*model.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	now := time.Now().UTC()
	stored, ok := r.users[u.ID]
	if !ok {
		stored.CreatedAt = now
	}
	stored.ID, stored.Email, stored.Name, stored.Surname = u.ID, u.Email, u.Name, u.Surname
	stored.UpdatedAt = now
	r.users[u.ID] = stored
	return &stored, nil
}

// CreateBudget creates a budget and its owner membership.
func (r *Memory) CreateBudget(_ context.Context, owner *model.User, name string) (*model.Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.upsertLocked(owner); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	b := model.Budget{ID: uuid.New(), Name: name, CreatorID: owner.ID, CreatedAt: now, UpdatedAt: now}
	r.budgets[b.ID] = b
	r.members[b.ID] = []model.BudgetMember{{BudgetID: b.ID, UserID: owner.ID, Role: model.RoleOwner, JoinedAt: now}}
	return &b, nil
}

// ListBudgets returns the owner's budgets, newest first.
func (r *Memory) ListBudgets(_ context.Context, ownerID uuid.UUID) ([]*model.Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*model.Budget, 0)
	for _, b := range r.budgets {
		if b.CreatorID == ownerID {
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Memory) owned(ownerID, id uuid.UUID) (model.Budget, error) {
	if r.err != nil {
		return model.Budget{}, r.err
	}
	b, ok := r.budgets[id]
	if !ok || b.CreatorID != ownerID {
		return model.Budget{}, repository.ErrBudgetNotFound
	}
	return b, nil
}

// GetBudget returns an owned budget.
func (r *Memory) GetBudget(_ context.Context, ownerID, id uuid.UUID) (*model.Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.owned(ownerID, id)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBudgetName renames an owned budget.
func (r *Memory) UpdateBudgetName(_ context.Context, ownerID, id uuid.UUID, name string) (*model.Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.owned(ownerID, id)
	if err != nil {
		return nil, err
	}
	b.Name = name
	b.UpdatedAt = time.Now().UTC()
	r.budgets[id] = b
	return &b, nil
}

// DeleteBudget removes an owned budget and its members.
func (r *Memory) DeleteBudget(_ context.Context, ownerID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.owned(ownerID, id); err != nil {
		return err
	}
	delete(r.budgets, id)
	delete(r.members, id)
	return nil
}

// ListBudgetMembers lists members of an owned budget.
func (r *Memory) ListBudgetMembers(_ context.Context, ownerID, id uuid.UUID) ([]*model.BudgetMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.owned(ownerID, id); err != nil {
		return nil, err
	}
	out := make([]*model.BudgetMember, 0, len(r.members[id]))
	for _, m := range r.members[id] {
		out = append(out, &m)
	}
	return out, nil
}

// ErrUnavailable is a stand-in storage failure for tests.
var ErrUnavailable = errors.New("database down")

// Fail makes every subsequent call return err. Pass nil to recover.
func (r *Memory) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// User returns the mirrored user with id, if any.
func (r *Memory) User(id uuid.UUID) (model.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	return u, ok
}
