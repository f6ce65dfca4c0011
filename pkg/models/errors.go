package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a project id does not exist.
var ErrNotFound = errors.New("project not found")

// ValidationError reports malformed or missing settings. It is surfaced
// synchronously, before any state transition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidStateError reports an operation attempted in a lifecycle state that
// forbids it, including a lost race on the processing transition.
type InvalidStateError struct {
	Op     string
	Status ProjectStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s project in status %q", e.Op, e.Status)
}

// ToolExecutionError reports a stage whose external tool exited non-zero or
// produced no output artifact. It is recorded on the project, not returned to
// the caller that triggered processing.
type ToolExecutionError struct {
	Stage    string
	ExitCode int
	Stderr   string
}

func (e *ToolExecutionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("stage %s failed (exit %d): %s", e.Stage, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("stage %s failed (exit %d)", e.Stage, e.ExitCode)
}

// TimeoutError reports a stage that exceeded its execution bound. It
// propagates like ToolExecutionError but names the cause.
type TimeoutError struct {
	Stage string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("stage %s timed out after %s", e.Stage, e.Limit)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	var se *InvalidStateError
	return errors.As(err, &se)
}
