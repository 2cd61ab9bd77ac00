// Package validation checks records against entity field descriptors.
// All violations for a record are collected into one aggregated
// ValidationError; callers never see just the first problem.
package validation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/logiflow/logiflow/internal/apierr"
	"github.com/logiflow/logiflow/internal/model"
)

// Engine validates records for create and update operations.
type Engine struct{}

// NewEngine creates a validation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Validate checks every field of the record against the entity
// descriptor. On create the record has already had auto fields and
// defaults populated; on update it is the merged view of the existing
// row and the submitted changes.
func (e *Engine) Validate(
	ctx context.Context,
	entity *model.Entity,
	record map[string]interface{},
	op model.Operation,
) error {
	verr := apierr.NewValidation()

	// Unknown keys are rejected rather than silently dropped.
	for key := range record {
		if !entity.HasField(key) {
			verr.Add(key, "is not a recognized field")
		}
	}

	for _, f := range entity.Fields {
		value, present := record[f.Name]

		if value == nil {
			if !f.Nullable && !f.PrimaryKey && !f.Auto {
				if op == model.OpCreate && !present {
					verr.Add(f.Name, "is required")
				} else {
					verr.Add(f.Name, "must not be null")
				}
			}
			continue
		}

		e.checkType(f, value, verr)
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// checkType validates a non-nil value against the field's semantic type.
func (e *Engine) checkType(f *model.Field, value interface{}, verr *apierr.ValidationError) {
	switch f.Type {
	case model.TypeString, model.TypeText:
		s, ok := value.(string)
		if !ok {
			verr.Add(f.Name, "must be a string")
			return
		}
		if f.MaxLength > 0 && len(s) > f.MaxLength {
			verr.Add(f.Name, fmt.Sprintf("must be at most %d characters", f.MaxLength))
		}

	case model.TypeInt:
		switch v := value.(type) {
		case int, int32, int64:
		case float64:
			// JSON numbers decode as float64; only whole values pass.
			if v != float64(int64(v)) {
				verr.Add(f.Name, "must be an integer")
			}
		default:
			verr.Add(f.Name, "must be an integer")
		}

	case model.TypeFloat:
		switch value.(type) {
		case float32, float64, int, int32, int64:
		default:
			verr.Add(f.Name, "must be a number")
		}

	case model.TypeDecimal:
		// Numeric columns scan back as strings; both forms are accepted.
		switch v := value.(type) {
		case float32, float64, int, int32, int64:
		case string:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				verr.Add(f.Name, "must be a decimal number")
			}
		default:
			verr.Add(f.Name, "must be a decimal number")
		}

	case model.TypeBool:
		if _, ok := value.(bool); !ok {
			verr.Add(f.Name, "must be a boolean")
		}

	case model.TypeDate:
		switch v := value.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse("2006-01-02", v); err != nil {
				verr.Add(f.Name, "must be a date in YYYY-MM-DD format")
			}
		default:
			verr.Add(f.Name, "must be a date in YYYY-MM-DD format")
		}

	case model.TypeTimestamp:
		switch v := value.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				verr.Add(f.Name, "must be an RFC 3339 timestamp")
			}
		default:
			verr.Add(f.Name, "must be an RFC 3339 timestamp")
		}

	case model.TypeUUID, model.TypeReference:
		s, ok := value.(string)
		if !ok {
			verr.Add(f.Name, "must be a UUID string")
			return
		}
		if _, err := uuid.Parse(s); err != nil {
			verr.Add(f.Name, "must be a valid UUID")
		}

	case model.TypeJSON:
		// Any JSON-encodable value is accepted, including the string
		// form jsonb columns scan back as.
	}
}
