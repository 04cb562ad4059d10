package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/budgetly/budgetly/internal/model"
)

// ErrUserNotFound is returned when no user row has the given id.
var ErrUserNotFound = errors.New("user not found")

const upsertUserQuery = `
	INSERT INTO users (user_id, email, name, surname, created_at, updated_at)
	VALUES ($1, $2, $3, $4, now(), now())
	ON CONFLICT (user_id) DO UPDATE
	SET email = EXCLUDED.email,
	    name = EXCLUDED.name,
	    surname = EXCLUDED.surname,
	    updated_at = now()
	RETURNING user_id, email, name, surname, created_at, updated_at
`

// querier is satisfied by both DB and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UpsertUser mirrors a credential store identity into the users table and
// returns the stored row. Email is not unique here: the credential store
// owns email uniqueness and a mirrored row may be stale.
func (r *Repository) UpsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	return upsertUser(ctx, r.db, user)
}

func upsertUser(ctx context.Context, q querier, user *model.User) (*model.User, error) {
	var out model.User
	err := q.QueryRow(ctx, upsertUserQuery,
		user.ID,
		user.Email,
		user.Name,
		user.Surname,
	).Scan(
		&out.ID,
		&out.Email,
		&out.Name,
		&out.Surname,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &out, nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT user_id, email, name, surname, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`

	var user model.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Surname,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &user, nil
}
