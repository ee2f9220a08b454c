// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/krishi-kendra/krishi-kendra/internal/shared"
)

// Detailer is implemented by errors that carry a user-safe structured payload.
type Detailer interface {
	error
	ProblemStatus() int
	ProblemFields() map[string]any
}

// StatusFor returns the HTTP status RespondError would use for err.
func StatusFor(err error) int {
	var detailed Detailer
	switch {
	case errors.As(err, &detailed):
		return detailed.ProblemStatus()
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Unclassified errors are reported as a generic 500 without detail.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	var detailed Detailer
	switch {
	case errors.As(err, &detailed):
		ProblemWithFields(w, status, http.StatusText(status), detailed.Error(), detailed.ProblemFields())
	case status == http.StatusInternalServerError:
		Problem(w, status, "Internal Error", "operation failed")
	default:
		Problem(w, status, http.StatusText(status), err.Error())
	}
}
