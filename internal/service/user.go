package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/budgetly/budgetly/internal/credstore"
	"github.com/budgetly/budgetly/internal/model"
)

// CredentialStore is the subset of the credential store used by user flows.
type CredentialStore interface {
	SignUp(ctx context.Context, in credstore.SignUpInput) error
	SignIn(ctx context.Context, email, password string) (*credstore.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*credstore.Session, error)
}

// UserRepository mirrors credential store identities locally.
type UserRepository interface {
	UpsertUser(ctx context.Context, user *model.User) (*model.User, error)
}

// SessionForgetter drops any server-side state tied to an access token.
type SessionForgetter interface {
	Forget(ctx context.Context, accessToken string)
}

// UserService implements registration, login, refresh and profile lookups.
type UserService struct {
	store    CredentialStore
	repo     UserRepository
	sessions SessionForgetter
	logger   *slog.Logger
}

// NewUserService creates a new UserService. sessions may be nil.
func NewUserService(store CredentialStore, repo UserRepository, sessions SessionForgetter, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{store: store, repo: repo, sessions: sessions, logger: logger}
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Surname  string
}

// Register creates the identity in the credential store. The user row is
// mirrored on first login, once the email is confirmed.
func (s *UserService) Register(ctx context.Context, in RegisterInput) error {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrRegistrationRejected)
	}

	err := s.store.SignUp(ctx, credstore.SignUpInput{
		Email:    email,
		Password: in.Password,
		Name:     strings.TrimSpace(in.Name),
		Surname:  strings.TrimSpace(in.Surname),
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, credstore.ErrRejected):
		return fmt.Errorf("%w: %w", ErrRegistrationRejected, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
}

// Login signs in with email and password and mirrors the user locally.
func (s *UserService) Login(ctx context.Context, email, password string) (*credstore.Session, error) {
	sess, err := s.store.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		if errors.Is(err, credstore.ErrRejected) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	if _, err := s.repo.UpsertUser(ctx, sess.Principal.ToUser()); err != nil {
		// The credential store owns the identity; a stale mirror is repaired
		// on the next login or profile read.
		s.logger.WarnContext(ctx, "failed to mirror user on login",
			slog.String("user_id", sess.Principal.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return sess, nil
}

// Refresh rotates a session from its refresh token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	sess, err := s.store.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, credstore.ErrRejected) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return &sess.Tokens, nil
}

// Logout forgets server-side state for the access token. Cookies are
// cleared by the caller regardless of the outcome.
func (s *UserService) Logout(ctx context.Context, accessToken string) {
	if s.sessions != nil {
		s.sessions.Forget(ctx, accessToken)
	}
}

// Me mirrors the principal into the users table and returns the stored row.
func (s *UserService) Me(ctx context.Context, p *model.Principal) (*model.User, error) {
	u, err := s.repo.UpsertUser(ctx, p.ToUser())
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}
