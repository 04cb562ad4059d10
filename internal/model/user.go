// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the local mirror of an identity owned by the credential store.
// The ID is the credential store's user id.
type User struct {
	ID        uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal is the authenticated identity resolved from request credentials.
type Principal struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Surname string    `json:"surname"`
}

// ToUser converts a principal into the user record mirrored locally.
func (p *Principal) ToUser() *User {
	return &User{
		ID:      p.ID,
		Email:   p.Email,
		Name:    p.Name,
		Surname: p.Surname,
	}
}

// TokenPair is a session issued by the credential store. It only ever lives
// in client cookies.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
