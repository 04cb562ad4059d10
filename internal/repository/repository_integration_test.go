//go:build integration

package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetly/budgetly/internal/model"
	"github.com/budgetly/budgetly/internal/testutil"
)

func newIntegrationRepo(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	ctx := context.Background()
	dsn := testutil.StartPostgres(t)

	m, err := NewMigrator(dsn)
	require.NoError(t, err)
	require.NoError(t, m.Down())
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	repo, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return ctx, repo
}

func TestIntegrationMigrator_FullCycle(t *testing.T) {
	dsn := testutil.StartPostgres(t)

	m, err := NewMigrator(dsn)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Down())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, m.Up())
	latest, _, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)

	require.NoError(t, m.Steps(-1))
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, latest-1, version)

	require.NoError(t, m.Up())
	require.NoError(t, m.Up(), "second Up is a no-op")
}

func TestIntegrationBudget_OwnershipScoping(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)
	u1 := testutil.NewTestUser(t, "u1")
	u2 := testutil.NewTestUser(t, "u2")
	_, err := repo.UpsertUser(ctx, u2)
	require.NoError(t, err)

	b, err := repo.CreateBudget(ctx, u1, "Groceries")
	require.NoError(t, err)

	got, err := repo.GetBudget(ctx, u1.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Name)

	list1, err := repo.ListBudgets(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, list1, 1)
	assert.Equal(t, b.ID, list1[0].ID)

	list2, err := repo.ListBudgets(ctx, u2.ID)
	require.NoError(t, err)
	assert.Empty(t, list2)

	// Another owner's budget looks exactly like a random id.
	_, errOther := repo.GetBudget(ctx, u2.ID, b.ID)
	_, errRandom := repo.GetBudget(ctx, u2.ID, uuid.New())
	assert.ErrorIs(t, errOther, ErrBudgetNotFound)
	assert.ErrorIs(t, errRandom, ErrBudgetNotFound)
	assert.Equal(t, errRandom.Error(), errOther.Error())

	_, err = repo.UpdateBudgetName(ctx, u2.ID, b.ID, "Hijacked")
	assert.ErrorIs(t, err, ErrBudgetNotFound)
	assert.ErrorIs(t, repo.DeleteBudget(ctx, u2.ID, b.ID), ErrBudgetNotFound)

	got, err = repo.GetBudget(ctx, u1.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Name)
}

func TestIntegrationBudget_UpdateAndDelete(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)
	u := testutil.NewTestUser(t, "owner")

	b, err := repo.CreateBudget(ctx, u, "Rent")
	require.NoError(t, err)

	updated, err := repo.UpdateBudgetName(ctx, u.ID, b.ID, "Housing")
	require.NoError(t, err)
	assert.Equal(t, "Housing", updated.Name)
	assert.False(t, updated.UpdatedAt.Before(b.UpdatedAt))

	members, err := repo.ListBudgetMembers(ctx, u.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, model.RoleOwner, members[0].Role)

	require.NoError(t, repo.DeleteBudget(ctx, u.ID, b.ID))
	_, err = repo.GetBudget(ctx, u.ID, b.ID)
	assert.ErrorIs(t, err, ErrBudgetNotFound)

	_, err = repo.ListBudgetMembers(ctx, u.ID, b.ID)
	assert.ErrorIs(t, err, ErrBudgetNotFound)
	assert.ErrorIs(t, repo.DeleteBudget(ctx, u.ID, b.ID), ErrBudgetNotFound)
}

func TestIntegrationUser_Upsert(t *testing.T) {
	ctx, repo := newIntegrationRepo(t)
	u := testutil.NewTestUser(t, "ada")

	first, err := repo.UpsertUser(ctx, u)
	require.NoError(t, err)

	u.Name = "Augusta"
	second, err := repo.UpsertUser(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "Augusta", second.Name)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	// A stale mirror keeps an address the credential store has since given
	// to another identity; both rows must coexist.
	other := testutil.NewTestUser(t, "successor")
	other.Email = strings.ToUpper(u.Email)
	_, err = repo.UpsertUser(ctx, other)
	require.NoError(t, err)

	b, err := repo.CreateBudget(ctx, other, "Rent")
	require.NoError(t, err)
	assert.Equal(t, other.ID, b.CreatorID)

	got, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
}
