package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetly/budgetly/internal/handler/dto"
	"github.com/budgetly/budgetly/internal/model"
	"github.com/budgetly/budgetly/internal/repository/repositorytest"
	"github.com/budgetly/budgetly/internal/service"
	"github.com/budgetly/budgetly/internal/session"
)

func newBudgetRouter(t *testing.T) (http.Handler, *repositorytest.Memory) {
	t.Helper()
	repo := repositorytest.New()
	h := NewBudgetHandler(service.NewBudgetService(repo, nil), nil)

	r := chi.NewRouter()
	r.Route("/budgets", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/members", h.Members)
	})
	return r, repo
}

func newPrincipal(name string) *model.Principal {
	return &model.Principal{ID: uuid.New(), Email: name + "@example.com", Name: name}
}

// serveAs runs a request through router with p attached as the principal.
func serveAs(router http.Handler, p *model.Principal, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req = req.WithContext(session.ContextWithPrincipal(req.Context(), p))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func createBudget(t *testing.T, router http.Handler, p *model.Principal, name string) model.Budget {
	t.Helper()
	rec := serveAs(router, p, http.MethodPost, "/budgets/", `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeInto[model.Budget](t, rec)
}

func TestBudgetHandler_CreateAndGet(t *testing.T) {
	router, _ := newBudgetRouter(t)
	u1 := newPrincipal("u1")

	created := createBudget(t, router, u1, "Groceries")
	assert.Equal(t, "Groceries", created.Name)
	assert.Equal(t, u1.ID, created.CreatorID)
	assert.NotEqual(t, uuid.Nil, created.ID)

	rec := serveAs(router, u1, http.MethodGet, "/budgets/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeInto[model.Budget](t, rec)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Groceries", got.Name)
}

func TestBudgetHandler_ResponseShape(t *testing.T) {
	router, _ := newBudgetRouter(t)
	rec := serveAs(router, newPrincipal("u1"), http.MethodPost, "/budgets/", `{"name":"Rent"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeInto[map[string]any](t, rec)
	for _, key := range []string{"budget_id", "name", "creator_id", "created_at", "updated_at"} {
		assert.Contains(t, body, key)
	}
}

func TestBudgetHandler_ListIsScopedToOwner(t *testing.T) {
	router, _ := newBudgetRouter(t)
	u1, u2 := newPrincipal("u1"), newPrincipal("u2")

	createBudget(t, router, u1, "Groceries")

	rec := serveAs(router, u1, http.MethodGet, "/budgets/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeInto[[]model.Budget](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Groceries", list[0].Name)

	rec = serveAs(router, u2, http.MethodGet, "/budgets/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestBudgetHandler_NonOwnerGetsNotFound(t *testing.T) {
	router, _ := newBudgetRouter(t)
	u1, u2 := newPrincipal("u1"), newPrincipal("u2")
	b := createBudget(t, router, u1, "Groceries")

	random := serveAs(router, u2, http.MethodGet, "/budgets/"+uuid.NewString(), "")
	foreign := serveAs(router, u2, http.MethodGet, "/budgets/"+b.ID.String(), "")

	assert.Equal(t, http.StatusNotFound, random.Code)
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, random.Body.String(), foreign.Body.String())
}

func TestBudgetHandler_NonOwnerUpdateLeavesBudgetUntouched(t *testing.T) {
	router, _ := newBudgetRouter(t)
	u1, u2 := newPrincipal("u1"), newPrincipal("u2")
	b := createBudget(t, router, u1, "Groceries")

	rec := serveAs(router, u2, http.MethodPut, "/budgets/"+b.ID.String(), `{"name":"Hacked"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "BUDGET_NOT_FOUND", decodeInto[dto.ErrorResponse](t, rec).Code)

	rec = serveAs(router, u1, http.MethodGet, "/budgets/"+b.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Groceries", decodeInto[model.Budget](t, rec).Name)
}

func TestBudgetHandler_Update(t *testing.T) {
	router, _ := newBudgetRouter(t)
	u1 := newPrincipal("u1")
	b := createBudget(t, router, u1, "Groceries")

	rec := serveAs(router, u1, http.MethodPut, "/budgets/"+b.ID.String(), `{"name":"Food"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeInto[model.Budget](t, rec)
	assert.Equal(t, "Food", updated.Name)
	assert.Equal(t, b.ID, updated.ID)
}

func TestBudgetHandler_Delete(t *testing.T) {
	router, _ := newBudgetRouter(t)
	u1, u2 := newPrincipal("u1"), newPrincipal("u2")
	b := createBudget(t, router, u1, "Groceries")

	rec := serveAs(router, u2, http.MethodDelete, "/budgets/"+b.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serveAs(router, u1, http.MethodDelete, "/budgets/"+b.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Budget deleted successfully"}`, rec.Body.String())

	rec = serveAs(router, u1, http.MethodGet, "/budgets/"+b.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBudgetHandler_Members(t *testing.T) {
	router, _ := newBudgetRouter(t)
	u1, u2 := newPrincipal("u1"), newPrincipal("u2")
	b := createBudget(t, router, u1, "Groceries")

	rec := serveAs(router, u1, http.MethodGet, "/budgets/"+b.ID.String()+"/members", "")
	require.Equal(t, http.StatusOK, rec.Code)
	members := decodeInto[[]model.BudgetMember](t, rec)
	require.Len(t, members, 1)
	assert.Equal(t, u1.ID, members[0].UserID)
	assert.Equal(t, model.RoleOwner, members[0].Role)

	rec = serveAs(router, u2, http.MethodGet, "/budgets/"+b.ID.String()+"/members", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBudgetHandler_InvalidInput(t *testing.T) {
	router, _ := newBudgetRouter(t)
	u1 := newPrincipal("u1")
	b := createBudget(t, router, u1, "Groceries")

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed json", http.MethodPost, "/budgets/", `{"name":`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing name", http.MethodPost, "/budgets/", `{}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"blank name", http.MethodPost, "/budgets/", `{"name":"   "}`, http.StatusBadRequest, "INVALID_NAME"},
		{"name too long", http.MethodPut, "/budgets/" + b.ID.String(), `{"name":"` + strings.Repeat("a", 300) + `"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"id not a uuid", http.MethodGet, "/budgets/not-a-uuid", "", http.StatusNotFound, "BUDGET_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveAs(router, u1, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeInto[dto.ErrorResponse](t, rec).Code)
		})
	}
}

func TestBudgetHandler_RepositoryFailureIsInternal(t *testing.T) {
	router, repo := newBudgetRouter(t)
	repo.Fail(errors.New("connection reset"))

	rec := serveAs(router, newPrincipal("u1"), http.MethodGet, "/budgets/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeInto[dto.ErrorResponse](t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
	assert.NotContains(t, resp.Error, "connection reset")
}

func TestBudgetHandler_BodyTooLarge(t *testing.T) {
	router, _ := newBudgetRouter(t)
	limited := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 16)
		router.ServeHTTP(w, r)
	})

	rec := serveAs(limited, newPrincipal("u1"), http.MethodPost, "/budgets/", `{"name":"`+strings.Repeat("a", 64)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
