package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/stardiary/stardiary/internal/auth/service"
	"github.com/stardiary/stardiary/pkg/httpx"
)

// errorResponse is the JSON error body used by every endpoint.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// apiError pairs an HTTP status with a stable machine-readable code.
type apiError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e apiError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, errorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
	})
}

var (
	errInvalidJSONBody = apiError{http.StatusBadRequest, "invalid_request", "Request body must be valid JSON"}
	errServerError     = apiError{http.StatusInternalServerError, "server_error", "Something went wrong"}
)

func errInvalidRequest(desc string) apiError {
	return apiError{http.StatusBadRequest, "invalid_request", desc}
}

// writeServiceError maps service-layer errors onto the wire taxonomy.
// Unknown errors are logged and reported as opaque server errors.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var (
		locked   *service.LockedError
		mismatch *service.PINMismatchError
	)

	switch {
	case errors.Is(err, service.ErrValidation):
		errInvalidRequest("Invalid request parameters").WriteError(w)

	case errors.Is(err, service.ErrInvalidCredentials):
		apiError{http.StatusUnauthorized, "invalid_credentials", "Invalid credentials"}.WriteError(w)

	case errors.Is(err, service.ErrOTPRequired):
		apiError{http.StatusUnauthorized, "otp_required", "A one-time code is required"}.WriteError(w)

	case errors.Is(err, service.ErrForbidden):
		apiError{http.StatusForbidden, "forbidden", "Operation not permitted"}.WriteError(w)

	case errors.Is(err, service.ErrNotFound):
		apiError{http.StatusNotFound, "not_found", "Resource not found"}.WriteError(w)

	case errors.Is(err, service.ErrConflict):
		apiError{http.StatusConflict, "already_exists", "Resource already exists"}.WriteError(w)

	case errors.Is(err, service.ErrPINNotSet):
		apiError{http.StatusConflict, "pin_not_set", "No PIN is set for this child"}.WriteError(w)

	case errors.Is(err, service.ErrPINAlreadySet):
		apiError{http.StatusConflict, "pin_already_set", "A PIN is already set; ask a parent to re-issue access"}.WriteError(w)

	case errors.As(err, &locked):
		retry := int(locked.RetryAfter.Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		apiError{http.StatusLocked, "locked", "Too many failed attempts, try again later"}.WriteError(w)

	case errors.As(err, &mismatch):
		apiError{
			http.StatusUnauthorized,
			"invalid_credentials",
			fmt.Sprintf("Invalid PIN, %d attempts remaining", mismatch.Remaining),
		}.WriteError(w)

	default:
		log.Error("unhandled service error", "err", err)
		errServerError.WriteError(w)
	}
}
