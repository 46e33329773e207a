package regl

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrContextLost is returned by every invocation between a context
	// loss event and the completion of restoration.
	ErrContextLost = errors.New("regl: context lost")

	// ErrDestroyed is returned when invoking a destroyed command or
	// using a destroyed resource.
	ErrDestroyed = errors.New("regl: destroyed")

	// ErrNotAvailable is returned when a requested capability (timer
	// queries, instancing) is not supported by the context.
	ErrNotAvailable = errors.New("regl: not available")
)

// CommandError is a construction error for a command specification.
// It names the offending command and field; construction errors are
// fail-fast and total, so a command that returned one is never usable.
type CommandError struct {
	// Command is the CommandSpec.Name, or "<unnamed>".
	Command string

	// Field is the specification field that failed, in dotted form
	// (e.g. "blend.func.srcRGB", "attributes.position").
	Field string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("regl: command %q, field %q: %v", e.Command, e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CommandError) Unwrap() error { return e.Err }

func cmdErr(command, field, format string, args ...any) *CommandError {
	return &CommandError{Command: command, Field: field, Err: fmt.Errorf(format, args...)}
}

func cmdWrap(command, field string, err error) *CommandError {
	return &CommandError{Command: command, Field: field, Err: err}
}
