package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	ve := &ValidationError{Field: "audio_volume", Reason: "audio volume must be between 0 and 100"}
	assert.Equal(t, "invalid audio_volume: audio volume must be between 0 and 100", ve.Error())

	se := &InvalidStateError{Op: "update", Status: StatusProcessing}
	assert.Equal(t, `cannot update project in status "processing"`, se.Error())

	te := &ToolExecutionError{Stage: "filter", ExitCode: 1, Stderr: "No such filter"}
	assert.Equal(t, "stage filter failed (exit 1): No such filter", te.Error())

	teBare := &ToolExecutionError{Stage: "base", ExitCode: 255}
	assert.Equal(t, "stage base failed (exit 255)", teBare.Error())

	to := &TimeoutError{Stage: "audio", Limit: 10 * time.Minute}
	assert.Equal(t, "stage audio timed out after 10m0s", to.Error())
}

func TestErrorPredicates(t *testing.T) {
	wrapped := fmt.Errorf("create: %w", &ValidationError{Field: "f", Reason: "r"})
	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsInvalidState(wrapped))

	wrapped = fmt.Errorf("process: %w", &InvalidStateError{Op: "process", Status: StatusProcessing})
	assert.True(t, IsInvalidState(wrapped))
	assert.False(t, IsValidation(wrapped))

	assert.False(t, IsValidation(errors.New("plain")))
	assert.False(t, IsInvalidState(nil))
}
