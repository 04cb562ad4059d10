package service

import "errors"

// Service errors. Handlers map these to HTTP statuses.
var (
	ErrBudgetNotFound = errors.New("budget not found")
	ErrInvalidName    = errors.New("budget name must not be empty")
	ErrNameTooLong    = errors.New("budget name too long")

	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrNoRefreshToken       = errors.New("no refresh token provided")
	ErrInvalidRefreshToken  = errors.New("invalid or expired refresh token")
	ErrRegistrationRejected = errors.New("registration rejected")
	ErrUpstream             = errors.New("credential store unavailable")
)
