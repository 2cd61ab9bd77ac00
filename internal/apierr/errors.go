// Package apierr defines the error taxonomy shared by the generated API
// surfaces: validation, authorization, not-found, conflict, and startup
// errors. The web layers map these onto HTTP envelopes and graph error
// extensions; everything else wraps and rethrows.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError aggregates field-level violations. Every offending
// field is reported, never just the first.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidation creates an empty ValidationError.
func NewValidation() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a violation message for a field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any violation was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// Count returns the total number of recorded violations.
func (e *ValidationError) Count() int {
	n := 0
	for _, msgs := range e.Fields {
		n += len(msgs)
	}
	return n
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(e.Fields[field], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// MarshalJSON renders the field violation map.
func (e *ValidationError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Fields)
}

// AuthorizationError is returned when the capability resolver denies an
// operation. The store is never touched on this path.
type AuthorizationError struct {
	Role      string
	Entity    string
	Operation string
}

// NewAuthorization creates an AuthorizationError for a denied triple.
func NewAuthorization(role, entity, operation string) *AuthorizationError {
	return &AuthorizationError{Role: role, Entity: entity, Operation: operation}
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %s is not permitted to %s %s", e.Role, e.Operation, e.Entity)
}

// NotFoundError is returned when a get, update, or delete names an id
// that does not exist. Deleting a missing id reports this, not a fault.
type NotFoundError struct {
	Entity string
	ID     string
}

// NewNotFound creates a NotFoundError for the given entity and id.
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %s not found", e.Entity, e.ID)
}

// ConflictError surfaces store-level uniqueness or relation violations.
// These indicate a caller error and are never retried.
type ConflictError struct {
	Message string
	Err     error
}

// NewConflict creates a ConflictError wrapping the store cause.
func NewConflict(message string, cause error) *ConflictError {
	return &ConflictError{Message: message, Err: cause}
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "conflict"
}

func (e *ConflictError) Unwrap() error { return e.Err }

// StartupError is fatal: the process must not serve with a broken
// registry, policy, or route table.
type StartupError struct {
	Stage string
	Err   error
}

// NewStartup wraps a boot-time failure with the stage that produced it.
func NewStartup(stage string, err error) *StartupError {
	return &StartupError{Stage: stage, Err: err}
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed during %s: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsAuthorization reports whether err is (or wraps) an AuthorizationError.
func IsAuthorization(err error) bool {
	var a *AuthorizationError
	return errors.As(err, &a)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsStartup reports whether err is (or wraps) a StartupError.
func IsStartup(err error) bool {
	var s *StartupError
	return errors.As(err, &s)
}
