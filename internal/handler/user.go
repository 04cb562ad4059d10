package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/budgetly/budgetly/internal/errutil"
	"github.com/budgetly/budgetly/internal/handler/dto"
	"github.com/budgetly/budgetly/internal/service"
	"github.com/budgetly/budgetly/internal/session"
)

// UserHandler handles registration, login and session endpoints.
type UserHandler struct {
	svc     *service.UserService
	cookies session.CookieConfig
	logger  *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, cookies session.CookieConfig, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{svc: svc, cookies: cookies, logger: logger}
}

// Register handles POST /users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Surname:  req.Surname,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeMessage(w, "User registered. Please check your email.")
}

// Login handles POST /users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.cookies.SetTokens(w, sess.Tokens)
	h.logger.InfoContext(r.Context(), "user_logged_in", "user_id", sess.Principal.ID)

	writeMessage(w, "Logged in successfully")
}

// Logout handles POST /users/logout. Cookies are cleared whether or not the
// request carried a valid session.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	creds := session.ReadCredentials(r)
	if creds.AccessToken != "" {
		h.svc.Logout(r.Context(), creds.AccessToken)
	}

	h.cookies.Clear(w)
	writeMessage(w, "Logged out")
}

// Refresh handles POST /users/refresh
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	creds := session.ReadCredentials(r)

	pair, err := h.svc.Refresh(r.Context(), creds.RefreshToken)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.cookies.SetTokens(w, *pair)
	writeMessage(w, "Session refreshed")
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := session.MustPrincipalFromContext(r.Context())

	user, err := h.svc.Me(r.Context(), principal)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserResponse{User: user})
}

// Protected handles GET /users/protected
func (h *UserHandler) Protected(w http.ResponseWriter, r *http.Request) {
	principal := session.MustPrincipalFromContext(r.Context())
	writeMessage(w, fmt.Sprintf("Hello, %s! This is a protected route.", principal.Email))
}

// handleServiceError maps service errors to HTTP responses. Provider
// messages stay in the logs.
func (h *UserHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrRegistrationRejected):
		h.logger.DebugContext(r.Context(), "registration rejected", errutil.Attrs(err)...)
		writeError(w, http.StatusBadRequest, "REGISTRATION_REJECTED", "Registration failed")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, service.ErrNoRefreshToken):
		writeError(w, http.StatusUnauthorized, "NO_REFRESH_TOKEN", "No refresh token provided")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		writeError(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Invalid or expired refresh token")
	case errors.Is(err, service.ErrUpstream):
		errutil.LogError(r.Context(), h.logger, "credential store unavailable", err)
		writeError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Authentication service unavailable")
	default:
		errutil.LogError(r.Context(), h.logger, "internal_error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
