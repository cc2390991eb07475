package httpx

import (
	"errors"
	"net/http"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Denied and
// unauthorized responses deliberately carry no detail: the specific missing
// right is logged server-side only, never echoed to the client.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDenied):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, shared.ErrNotInitialized):
		Problem(w, http.StatusServiceUnavailable, "Not Ready", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
