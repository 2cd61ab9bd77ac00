package response

import (
	"errors"
	"net/http"

	"github.com/logiflow/logiflow/internal/apierr"
	"github.com/logiflow/logiflow/internal/store"
)

// ErrorResponse is the generic error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ValidationErrorResponse is the aggregated field-error envelope.
type ValidationErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields"`
}

// StatusEnvelope is the {"status":"error"} shape the retrieve/delete
// paths return for missing records.
type StatusEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RenderError maps an error from the generated surfaces onto its HTTP
// envelope. Store sentinels are converted the same way the handlers
// convert them, so callers can pass either taxonomy.
func RenderError(w http.ResponseWriter, err error) {
	var verr *apierr.ValidationError
	if errors.As(err, &verr) {
		RenderValidationError(w, verr)
		return
	}

	var aerr *apierr.AuthorizationError
	if errors.As(err, &aerr) {
		RenderForbidden(w)
		return
	}

	var nerr *apierr.NotFoundError
	if errors.As(err, &nerr) {
		RenderNotFound(w, nerr.Error())
		return
	}

	var cerr *apierr.ConflictError
	if errors.As(err, &cerr) {
		RenderConflict(w, cerr.Error())
		return
	}

	switch {
	case store.IsNotFound(err):
		RenderNotFound(w, "not found")
	case store.IsConstraintViolation(err):
		RenderConflict(w, err.Error())
	default:
		RenderInternalError(w)
	}
}

// RenderValidationError writes the aggregated 422 envelope. Every
// offending field appears, not just the first.
func RenderValidationError(w http.ResponseWriter, verr *apierr.ValidationError) {
	RenderJSON(w, http.StatusUnprocessableEntity, &ValidationErrorResponse{
		Error:   "validation_failed",
		Message: "The request contains invalid data",
		Fields:  verr.Fields,
	})
}

// RenderForbidden writes the 403 envelope.
func RenderForbidden(w http.ResponseWriter) {
	RenderJSON(w, http.StatusForbidden, &ErrorResponse{
		Error:   "forbidden",
		Message: "Access denied",
	})
}

// RenderNotFound writes the 404 status envelope.
func RenderNotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "not found"
	}
	RenderJSON(w, http.StatusNotFound, &StatusEnvelope{
		Status:  "error",
		Message: message,
	})
}

// RenderConflict writes the 409 envelope.
func RenderConflict(w http.ResponseWriter, message string) {
	RenderJSON(w, http.StatusConflict, &ErrorResponse{
		Error:   "conflict",
		Message: message,
	})
}

// RenderBadRequest writes the 400 envelope.
func RenderBadRequest(w http.ResponseWriter, message string) {
	RenderJSON(w, http.StatusBadRequest, &ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// RenderInternalError writes the 500 envelope. Internal details stay in
// the logs.
func RenderInternalError(w http.ResponseWriter) {
	RenderJSON(w, http.StatusInternalServerError, &ErrorResponse{
		Error:   "internal_server_error",
		Message: "An unexpected error occurred",
	})
}
