package ui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logiflow/logiflow/internal/apierr"
)

func TestFormatStartupError_NamesStageAndHint(t *testing.T) {
	err := apierr.NewStartup("database", errors.New("connection refused"))

	out := FormatStartupError(err, true)
	assert.Contains(t, out, "STARTUP FAILED (database)")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "LOGIFLOW_DATABASE_URL")
}

func TestFormatStartupError_UnknownStageHasNoHint(t *testing.T) {
	err := apierr.NewStartup("weird", errors.New("boom"))

	out := FormatStartupError(err, true)
	assert.Contains(t, out, "STARTUP FAILED (weird)")
	assert.NotContains(t, out, "→")
}

func TestFormatStartupError_PlainError(t *testing.T) {
	out := FormatStartupError(errors.New("boom"), true)
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "STARTUP FAILED")
}
