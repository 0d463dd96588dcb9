package errors

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Response converts e to its client-facing form. The wrapped error is dropped.
func (e *Error) Response() ErrorResponse {
	return ErrorResponse{Code: e.Code, Message: e.Message, Details: e.Details}
}

// WriteError replies with err as {code, message}. Errors that are not an
// *Error become INTERNAL_ERROR and are logged.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var e *Error
	if !errors.As(err, &e) {
		slog.Error("Unhandled error", "path", r.URL.Path, "error", err)
		e = Internal(err)
	} else if e.Code == ErrCodeInternal {
		slog.Error("Internal error", "path", r.URL.Path, "error", err)
	}

	if retry, ok := e.Details["retry_after"].(string); ok && retry != "" {
		w.Header().Set("Retry-After", retry)
	}
	render.Status(r, e.Status())
	render.JSON(w, r, e.Response())
}
