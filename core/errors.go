package core

import (
	"errors"
	"fmt"
)

// ErrNotSupported is the sentinel matched by errors.Is for capabilities a
// collaborator does not (yet) provide. Callers treat it as a distinct
// outcome, never as a crash.
var ErrNotSupported = errors.New("not supported")

// NotSupportedError reports an unavailable collaborator capability by name.
type NotSupportedError struct {
	Capability string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s: not supported", e.Capability)
}

// Is makes NotSupportedError match ErrNotSupported.
func (e *NotSupportedError) Is(target error) bool { return target == ErrNotSupported }

// ConfigurationError reports an invalid or missing required field on an
// agent or runner configuration. It fails a run before any model call.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// SessionError wraps a failure of the session backend. It aborts the run;
// already-committed appends are not rolled back.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s failed: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// MaxTurnsExceededError reports that the turn loop hit the configured
// ceiling without completing.
type MaxTurnsExceededError struct {
	MaxTurns int
}

func (e *MaxTurnsExceededError) Error() string {
	return fmt.Sprintf("max turns %d exceeded", e.MaxTurns)
}
