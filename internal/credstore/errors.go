package credstore

import "errors"

// Errors returned by the credential store client. Both are wrapped with
// oops context (operation, status) and can be matched with errors.Is.
var (
	// ErrRejected means the credential store answered and refused the
	// credentials or payload (4xx).
	ErrRejected = errors.New("credential store rejected request")
	// ErrUpstream means the credential store could not be reached or
	// answered with a server error.
	ErrUpstream = errors.New("credential store unavailable")
)
