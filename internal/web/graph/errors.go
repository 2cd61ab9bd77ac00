package graph

import (
	"errors"

	"github.com/logiflow/logiflow/internal/apierr"
	"github.com/logiflow/logiflow/internal/store"
)

// Extension codes carried on graph errors.
const (
	codeValidationFailed = "VALIDATION_FAILED"
	codeForbidden        = "FORBIDDEN"
	codeNotFound         = "NOT_FOUND"
	codeConflict         = "CONFLICT"
	codeInternal         = "INTERNAL"
)

// requestError is a resolver error carrying GraphQL extensions. The
// handler formats Extensions() into the response's errors entries.
type requestError struct {
	message    string
	extensions map[string]interface{}
}

func (e *requestError) Error() string { return e.message }

func (e *requestError) Extensions() map[string]interface{} { return e.extensions }

func forbiddenError() error {
	return &requestError{
		message:    "Access denied",
		extensions: map[string]interface{}{"code": codeForbidden},
	}
}

// wrapError maps the error taxonomy onto extension codes. Unexpected
// errors become an opaque internal error so storage details never reach
// clients.
func wrapError(err error) error {
	var verr *apierr.ValidationError
	if errors.As(err, &verr) {
		return &requestError{
			message: "Validation failed",
			extensions: map[string]interface{}{
				"code":   codeValidationFailed,
				"fields": verr.Fields,
			},
		}
	}

	var nf *apierr.NotFoundError
	if errors.As(err, &nf) {
		return &requestError{
			message:    nf.Error(),
			extensions: map[string]interface{}{"code": codeNotFound},
		}
	}

	var az *apierr.AuthorizationError
	if errors.As(err, &az) {
		return forbiddenError()
	}

	var cf *apierr.ConflictError
	if errors.As(err, &cf) || store.IsConstraintViolation(err) {
		message := "Conflicts with existing data"
		if cf != nil {
			message = cf.Error()
		}
		return &requestError{
			message:    message,
			extensions: map[string]interface{}{"code": codeConflict},
		}
	}

	return &requestError{
		message:    "Internal server error",
		extensions: map[string]interface{}{"code": codeInternal},
	}
}
