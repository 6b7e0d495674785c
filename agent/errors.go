package agent

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned when a lifecycle operation is requested from a
// status that does not allow it.
var ErrInvalidState = errors.New("invalid agent state")

// PanicError wraps a value recovered from a panicking hook.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in message handler: %v", e.Value)
}
