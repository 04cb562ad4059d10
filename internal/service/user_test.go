package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetly/budgetly/internal/credstore/credstoretest"
	"github.com/budgetly/budgetly/internal/model"
	"github.com/budgetly/budgetly/internal/repository/repositorytest"
)

type forgetRecorder struct {
	forgotten []string
}

func (f *forgetRecorder) Forget(_ context.Context, accessToken string) {
	f.forgotten = append(f.forgotten, accessToken)
}

func newUserService(t *testing.T) (*UserService, *credstoretest.Store, *repositorytest.Memory, *forgetRecorder) {
	t.Helper()
	store := credstoretest.New()
	repo := repositorytest.New()
	forget := &forgetRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewUserService(store, repo, forget, logger), store, repo, forget
}

func TestUserService_Register(t *testing.T) {
	svc, store, _, _ := newUserService(t)
	ctx := context.Background()

	err := svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "secret1", Name: "Ada", Surname: "Lovelace"})
	require.NoError(t, err)

	err = svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrRegistrationRejected)

	err = svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, ErrRegistrationRejected)
	assert.Equal(t, 2, store.SignUpCalls(), "invalid email never reaches the store")

	store.Unavailable = true
	err = svc.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestUserService_LoginMirrorsUser(t *testing.T) {
	svc, store, repo, _ := newUserService(t)
	p := store.AddUser("ada@example.com", "secret1", "Ada", "Lovelace")

	sess, err := svc.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Tokens.AccessToken)
	assert.NotEmpty(t, sess.Tokens.RefreshToken)

	u, ok := repo.User(p.ID)
	require.True(t, ok)
	assert.Equal(t, "Lovelace", u.Surname)
}

func TestUserService_LoginRejected(t *testing.T) {
	svc, store, _, _ := newUserService(t)
	store.AddUser("ada@example.com", "secret1", "Ada", "Lovelace")

	_, err := svc.Login(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	store.Unavailable = true
	_, err = svc.Login(context.Background(), "ada@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_LoginSurvivesMirrorFailure(t *testing.T) {
	svc, store, repo, _ := newUserService(t)
	store.AddUser("ada@example.com", "secret1", "Ada", "Lovelace")
	repo.Fail(repositorytest.ErrUnavailable)

	_, err := svc.Login(context.Background(), "ada@example.com", "secret1")
	assert.NoError(t, err)
}

func TestUserService_Refresh(t *testing.T) {
	svc, store, _, _ := newUserService(t)
	p := store.AddUser("ada@example.com", "secret1", "Ada", "Lovelace")
	pair := store.IssueSession(p.ID)

	_, err := svc.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Zero(t, store.RefreshCalls())

	rotated, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "refresh tokens are single use")
}

func TestUserService_LogoutForgetsSession(t *testing.T) {
	svc, _, _, forget := newUserService(t)
	svc.Logout(context.Background(), "access-1")
	assert.Equal(t, []string{"access-1"}, forget.forgotten)

	NewUserService(credstoretest.New(), repositorytest.New(), nil, nil).Logout(context.Background(), "x")
}

func TestUserService_Me(t *testing.T) {
	svc, _, repo, _ := newUserService(t)
	p := principal("ada")

	u, err := svc.Me(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, p.ID, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	repo.Fail(repositorytest.ErrUnavailable)
	_, err = svc.Me(context.Background(), p)
	assert.ErrorIs(t, err, repositorytest.ErrUnavailable)
}

func TestUserService_MeWithStaleMirroredEmail(t *testing.T) {
	svc, _, repo, _ := newUserService(t)
	ctx := context.Background()

	stale := principal("ada")
	_, err := repo.UpsertUser(ctx, stale.ToUser())
	require.NoError(t, err)

	successor := &model.Principal{ID: uuid.New(), Email: stale.Email, Name: "Grace"}
	u, err := svc.Me(ctx, successor)
	require.NoError(t, err)
	assert.Equal(t, successor.ID, u.ID)
	assert.Equal(t, stale.Email, u.Email)
}
