package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetly/budgetly/internal/credstore/credstoretest"
	"github.com/budgetly/budgetly/internal/handler/dto"
	"github.com/budgetly/budgetly/internal/model"
	"github.com/budgetly/budgetly/internal/repository/repositorytest"
	"github.com/budgetly/budgetly/internal/service"
	"github.com/budgetly/budgetly/internal/session"
)

type forgotten struct {
	tokens []string
}

func (f *forgotten) Forget(_ context.Context, accessToken string) {
	f.tokens = append(f.tokens, accessToken)
}

type userFixture struct {
	router  http.Handler
	store   *credstoretest.Store
	repo    *repositorytest.Memory
	forgets *forgotten
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		store:   credstoretest.New(),
		repo:    repositorytest.New(),
		forgets: &forgotten{},
	}
	svc := service.NewUserService(f.store, f.repo, f.forgets, nil)
	h := NewUserHandler(svc, session.CookieConfig{Secure: true}, nil)

	r := chi.NewRouter()
	r.Route("/users", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/refresh", h.Refresh)
		r.Get("/me", h.Me)
		r.Get("/protected", h.Protected)
	})
	f.router = r
	return f
}

func (f *userFixture) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestUserHandler_Register(t *testing.T) {
	f := newUserFixture(t)

	rec := f.do(http.MethodPost, "/users/register",
		`{"email":"ada@example.com","password":"secret1","name":"Ada","surname":"Lovelace"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"User registered. Please check your email."}`, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 1, f.store.SignUpCalls())
}

func TestUserHandler_RegisterRejected(t *testing.T) {
	f := newUserFixture(t)
	f.store.AddUser("ada@example.com", "secret1", "Ada", "Lovelace")

	rec := f.do(http.MethodPost, "/users/register",
		`{"email":"ada@example.com","password":"secret1","name":"Ada","surname":"Lovelace"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeInto[dto.ErrorResponse](t, rec)
	assert.Equal(t, "REGISTRATION_REJECTED", resp.Code)
	assert.NotContains(t, resp.Error, "already registered")
}

func TestUserHandler_RegisterValidation(t *testing.T) {
	f := newUserFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing surname", `{"email":"ada@example.com","password":"secret1","name":"Ada"}`},
		{"short password", `{"email":"ada@example.com","password":"123","name":"Ada","surname":"L"}`},
		{"malformed", `{"email":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/users/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Zero(t, f.store.SignUpCalls())
}

func TestUserHandler_RegisterUpstreamDown(t *testing.T) {
	f := newUserFixture(t)
	f.store.Unavailable = true

	rec := f.do(http.MethodPost, "/users/register",
		`{"email":"ada@example.com","password":"secret1","name":"Ada","surname":"Lovelace"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", decodeInto[dto.ErrorResponse](t, rec).Code)
}

func TestUserHandler_LoginSetsCookies(t *testing.T) {
	f := newUserFixture(t)
	p := f.store.AddUser("ada@example.com", "secret1", "Ada", "Lovelace")

	rec := f.do(http.MethodPost, "/users/login", `{"email":"ada@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Logged in successfully"}`, rec.Body.String())

	cookies := cookiesByName(rec)
	require.Contains(t, cookies, session.AccessTokenCookie)
	require.Contains(t, cookies, session.RefreshTokenCookie)
	for _, c := range cookies {
		assert.NotEmpty(t, c.Value)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	}

	_, mirrored := f.repo.User(p.ID)
	assert.True(t, mirrored)
}

func TestUserHandler_LoginRejected(t *testing.T) {
	f := newUserFixture(t)
	f.store.AddUser("ada@example.com", "secret1", "Ada", "Lovelace")

	rec := f.do(http.MethodPost, "/users/login", `{"email":"ada@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeInto[dto.ErrorResponse](t, rec).Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestUserHandler_LogoutClearsCookies(t *testing.T) {
	tests := []struct {
		name    string
		cookies []*http.Cookie
	}{
		{"no session", nil},
		{"valid session", []*http.Cookie{
			{Name: session.AccessTokenCookie, Value: "access-1"},
			{Name: session.RefreshTokenCookie, Value: "refresh-1"},
		}},
		{"garbage session", []*http.Cookie{
			{Name: session.AccessTokenCookie, Value: "garbage"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture(t)

			rec := f.do(http.MethodPost, "/users/logout", "", tt.cookies...)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"message":"Logged out"}`, rec.Body.String())

			cookies := cookiesByName(rec)
			require.Len(t, cookies, 2)
			for _, name := range []string{session.AccessTokenCookie, session.RefreshTokenCookie} {
				require.Contains(t, cookies, name)
				assert.Empty(t, cookies[name].Value)
				assert.Negative(t, cookies[name].MaxAge)
			}
		})
	}
}

func TestUserHandler_LogoutForgetsAccessToken(t *testing.T) {
	f := newUserFixture(t)

	f.do(http.MethodPost, "/users/logout", "", &http.Cookie{Name: session.AccessTokenCookie, Value: "access-7"})
	assert.Equal(t, []string{"access-7"}, f.forgets.tokens)
}

func TestUserHandler_RefreshWithoutCookie(t *testing.T) {
	f := newUserFixture(t)

	rec := f.do(http.MethodPost, "/users/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No refresh token provided", decodeInto[dto.ErrorResponse](t, rec).Error)
	assert.Empty(t, rec.Result().Cookies())
	assert.Zero(t, f.store.RefreshCalls())
}

func TestUserHandler_RefreshRejected(t *testing.T) {
	f := newUserFixture(t)

	rec := f.do(http.MethodPost, "/users/refresh", "",
		&http.Cookie{Name: session.RefreshTokenCookie, Value: "refresh-unknown"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired refresh token", decodeInto[dto.ErrorResponse](t, rec).Error)
	assert.Empty(t, rec.Result().Cookies())
}

func TestUserHandler_RefreshRotatesCookies(t *testing.T) {
	f := newUserFixture(t)
	p := f.store.AddUser("ada@example.com", "secret1", "Ada", "Lovelace")
	pair := f.store.IssueSession(p.ID)

	rec := f.do(http.MethodPost, "/users/refresh", "",
		&http.Cookie{Name: session.RefreshTokenCookie, Value: pair.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Session refreshed"}`, rec.Body.String())

	cookies := cookiesByName(rec)
	require.Len(t, cookies, 2)
	assert.NotEqual(t, pair.AccessToken, cookies[session.AccessTokenCookie].Value)
	assert.NotEqual(t, pair.RefreshToken, cookies[session.RefreshTokenCookie].Value)
}

func TestUserHandler_MeAndProtected(t *testing.T) {
	f := newUserFixture(t)
	p := &model.Principal{ID: uuid.New(), Email: "ada@example.com", Name: "Ada", Surname: "Lovelace"}

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req = req.WithContext(session.ContextWithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeInto[dto.UserResponse](t, rec)
	require.NotNil(t, resp.User)
	assert.Equal(t, p.ID, resp.User.ID)
	assert.Equal(t, "Lovelace", resp.User.Surname)

	req = httptest.NewRequest(http.MethodGet, "/users/protected", nil)
	req = req.WithContext(session.ContextWithPrincipal(req.Context(), p))
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Hello, ada@example.com! This is a protected route."}`, rec.Body.String())
}
