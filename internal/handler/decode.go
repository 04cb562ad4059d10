package handler

import (
	"errors"
	"net/http"

	"github.com/budgetly/budgetly/internal/handler/dto"
)

// decodeBody decodes and validates the request body into dst. On failure it
// writes the error response and returns false.
func decodeBody[T any](w http.ResponseWriter, r *http.Request, dst *T) bool {
	err := dto.Decode(r.Body, dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	var invalid *dto.ValidationError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", invalid.Message)
	default:
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
	}
	return false
}
