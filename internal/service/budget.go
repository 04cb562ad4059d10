// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/budgetly/budgetly/internal/metrics"
	"github.com/budgetly/budgetly/internal/model"
	"github.com/budgetly/budgetly/internal/repository"
)

const maxBudgetNameLength = 255

// BudgetRepository is the storage the budget service needs. Every call is
// scoped by the owner's id.
type BudgetRepository interface {
	CreateBudget(ctx context.Context, owner *model.User, name string) (*model.Budget, error)
	ListBudgets(ctx context.Context, ownerID uuid.UUID) ([]*model.Budget, error)
	GetBudget(ctx context.Context, ownerID, id uuid.UUID) (*model.Budget, error)
	UpdateBudgetName(ctx context.Context, ownerID, id uuid.UUID, name string) (*model.Budget, error)
	DeleteBudget(ctx context.Context, ownerID, id uuid.UUID) error
	ListBudgetMembers(ctx context.Context, ownerID, budgetID uuid.UUID) ([]*model.BudgetMember, error)
}

// BudgetService handles budget business logic.
type BudgetService struct {
	repo    BudgetRepository
	metrics metrics.Recorder
}

// NewBudgetService creates a new BudgetService.
func NewBudgetService(repo BudgetRepository, recorder metrics.Recorder) *BudgetService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &BudgetService{repo: repo, metrics: recorder}
}

// Create stores a new budget owned by owner.
func (s *BudgetService) Create(ctx context.Context, owner *model.Principal, name string) (*model.Budget, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	b, err := s.repo.CreateBudget(ctx, owner.ToUser(), name)
	if err != nil {
		return nil, fmt.Errorf("failed to create budget: %w", err)
	}

	s.metrics.IncBudgetCreated()
	return b, nil
}

// List returns every budget owned by ownerID. An owner with no budgets gets
// an empty slice.
func (s *BudgetService) List(ctx context.Context, ownerID uuid.UUID) ([]*model.Budget, error) {
	budgets, err := s.repo.ListBudgets(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	return budgets, nil
}

// Get returns a budget if ownerID owns it.
func (s *BudgetService) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Budget, error) {
	b, err := s.repo.GetBudget(ctx, ownerID, id)
	if err != nil {
		return nil, mapBudgetError(err, "get")
	}
	return b, nil
}

// Rename replaces the name of a budget ownerID owns.
func (s *BudgetService) Rename(ctx context.Context, ownerID, id uuid.UUID, name string) (*model.Budget, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	b, err := s.repo.UpdateBudgetName(ctx, ownerID, id, name)
	if err != nil {
		return nil, mapBudgetError(err, "update")
	}

	s.metrics.IncBudgetUpdated()
	return b, nil
}

// Delete removes a budget ownerID owns.
func (s *BudgetService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.repo.DeleteBudget(ctx, ownerID, id); err != nil {
		return mapBudgetError(err, "delete")
	}

	s.metrics.IncBudgetDeleted()
	return nil
}

// Members lists the members of a budget ownerID owns.
func (s *BudgetService) Members(ctx context.Context, ownerID, id uuid.UUID) ([]*model.BudgetMember, error) {
	members, err := s.repo.ListBudgetMembers(ctx, ownerID, id)
	if err != nil {
		return nil, mapBudgetError(err, "list members of")
	}
	return members, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	if utf8.RuneCountInString(name) > maxBudgetNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

func mapBudgetError(err error, op string) error {
	if errors.Is(err, repository.ErrBudgetNotFound) {
		return ErrBudgetNotFound
	}
	return fmt.Errorf("failed to %s budget: %w", op, err)
}
