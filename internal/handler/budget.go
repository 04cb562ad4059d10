package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/budgetly/budgetly/internal/errutil"
	"github.com/budgetly/budgetly/internal/handler/dto"
	"github.com/budgetly/budgetly/internal/service"
	"github.com/budgetly/budgetly/internal/session"
)

// BudgetHandler handles budget CRUD endpoints. Every call is scoped to the
// principal the session middleware resolved.
type BudgetHandler struct {
	svc    *service.BudgetService
	logger *slog.Logger
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(svc *service.BudgetService, logger *slog.Logger) *BudgetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BudgetHandler{svc: svc, logger: logger}
}

// Create handles POST /budgets/
func (h *BudgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := session.MustPrincipalFromContext(r.Context())

	var req dto.BudgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	budget, err := h.svc.Create(r.Context(), principal, req.Name)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "budget_created",
		"budget_id", budget.ID,
		"owner_id", principal.ID,
	)

	writeJSON(w, http.StatusOK, budget)
}

// List handles GET /budgets/
func (h *BudgetHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := session.MustPrincipalFromContext(r.Context())

	budgets, err := h.svc.List(r.Context(), principal.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBudgetList(budgets))
}

// Get handles GET /budgets/{id}
func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := session.MustPrincipalFromContext(r.Context())

	id, ok := h.budgetID(w, r)
	if !ok {
		return
	}

	budget, err := h.svc.Get(r.Context(), principal.ID, id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, budget)
}

// Update handles PUT /budgets/{id}
func (h *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal := session.MustPrincipalFromContext(r.Context())

	id, ok := h.budgetID(w, r)
	if !ok {
		return
	}

	var req dto.BudgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	budget, err := h.svc.Rename(r.Context(), principal.ID, id, req.Name)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "budget_updated", "budget_id", id)

	writeJSON(w, http.StatusOK, budget)
}

// Delete handles DELETE /budgets/{id}
func (h *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := session.MustPrincipalFromContext(r.Context())

	id, ok := h.budgetID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), principal.ID, id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "budget_deleted", "budget_id", id)

	writeMessage(w, "Budget deleted successfully")
}

// Members handles GET /budgets/{id}/members
func (h *BudgetHandler) Members(w http.ResponseWriter, r *http.Request) {
	principal := session.MustPrincipalFromContext(r.Context())

	id, ok := h.budgetID(w, r)
	if !ok {
		return
	}

	members, err := h.svc.Members(r.Context(), principal.ID, id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if members == nil {
		members = []*dto.BudgetMemberResponse{}
	}

	writeJSON(w, http.StatusOK, members)
}

// budgetID parses the {id} URL parameter. An id that is not a UUID cannot
// name an owned budget and is reported as not found.
func (h *BudgetHandler) budgetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "BUDGET_NOT_FOUND", "Budget not found")
		return uuid.Nil, false
	}
	return id, true
}

// handleServiceError maps service errors to HTTP responses.
func (h *BudgetHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrBudgetNotFound):
		writeError(w, http.StatusNotFound, "BUDGET_NOT_FOUND", "Budget not found")
	case errors.Is(err, service.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "INVALID_NAME", "Budget name must not be empty")
	case errors.Is(err, service.ErrNameTooLong):
		writeError(w, http.StatusBadRequest, "NAME_TOO_LONG", "Budget name exceeds maximum length")
	default:
		errutil.LogError(r.Context(), h.logger, "internal_error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
