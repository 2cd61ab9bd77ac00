package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorAggregates(t *testing.T) {
	v := NewValidation()
	assert.False(t, v.HasErrors())

	v.Add("code", "is required")
	v.Add("poids", "must be a number")
	v.Add("poids", "must be positive")

	assert.True(t, v.HasErrors())
	assert.Equal(t, 3, v.Count())
	assert.Contains(t, v.Error(), "code: is required")
	assert.Contains(t, v.Error(), "poids: must be a number, must be positive")

	data, err := json.Marshal(v)
	require.NoError(t, err)
	var fields map[string][]string
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, []string{"is required"}, fields["code"])
	assert.Len(t, fields["poids"], 2)
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFound("Mrn", "42")
	assert.Equal(t, "Mrn with id 42 not found", err.Error())

	wrapped := fmt.Errorf("fetch: %w", err)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
}

func TestAuthorizationError(t *testing.T) {
	err := NewAuthorization("viewer", "mrns", "delete")
	assert.Equal(t, "role viewer is not permitted to delete mrns", err.Error())
	assert.True(t, IsAuthorization(err))
}

func TestConflictErrorUnwraps(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := NewConflict("Mrn already exists", cause)
	assert.Equal(t, "Mrn already exists", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsConflict(err))
}

func TestStartupError(t *testing.T) {
	err := NewStartup("route aggregation", errors.New("duplicate route GET /api/mrns/"))
	assert.Contains(t, err.Error(), "startup failed during route aggregation")
	assert.True(t, IsStartup(fmt.Errorf("boot: %w", err)))
}

func TestPredicatesRejectUnrelatedErrors(t *testing.T) {
	err := errors.New("plain")
	assert.False(t, IsValidation(err))
	assert.False(t, IsAuthorization(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
	assert.False(t, IsStartup(err))
}
