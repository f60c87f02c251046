package protocol

import (
	"errors"
	"fmt"
)

// ErrCodeInvalidInput marks user input rejected before any transport activity.
const ErrCodeInvalidInput = "INVALID_INPUT"

// InputError reports rejected user input: a generation count, variant name,
// cell coordinate or console command.
// No command is constructed when an InputError is returned.
type InputError struct {
	Field   string // "generations", "mode", "cell", "command", ...
	Value   string // offending input as typed
	Message string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s %q: %s", ErrCodeInvalidInput, e.Field, e.Value, e.Message)
}

// IsInvalidInput reports whether err (or anything it wraps) is an InputError.
func IsInvalidInput(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
