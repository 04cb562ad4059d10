package dto

import "github.com/budgetly/budgetly/internal/model"

// RegisterRequest is the body of POST /users/register.
type RegisterRequest struct {
	Email    string `json:"email" jsonschema:"minLength=3,maxLength=320"`
	Password string `json:"password" jsonschema:"minLength=6,maxLength=72"`
	Name     string `json:"name" jsonschema:"maxLength=100"`
	Surname  string `json:"surname" jsonschema:"maxLength=100"`
}

// LoginRequest is the body of POST /users/login.
type LoginRequest struct {
	Email    string `json:"email" jsonschema:"minLength=1,maxLength=320"`
	Password string `json:"password" jsonschema:"minLength=1,maxLength=72"`
}

// UserResponse wraps the current user.
type UserResponse struct {
	User *model.User `json:"user"`
}
