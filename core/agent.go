package core

import (
	"context"
	"fmt"
)

// Handler defines the hooks every concrete agent must implement.
//
// The lifecycle core owns status tracking and failure conversion; a Handler
// owns the message-type vocabulary and the domain logic behind it.
//
// Implementations must:
//   - Dispatch on Message.Type() (case-insensitive)
//   - Return UnsupportedTypeError (or any descriptive error) for unknown types
//   - Respect context cancellation on blocking work
type Handler interface {
	// CustomInitialize performs agent-specific setup. A returned error aborts
	// startup of the owning agent.
	CustomInitialize(ctx context.Context) error
	// ProcessCustomMessage handles one accepted message and returns the value
	// placed in Response.Data.
	ProcessCustomMessage(ctx context.Context, msg Message) (any, error)
}

// Shutdowner is implemented by handlers holding resources that must be
// released when the owning agent shuts down.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// HandlerFunc adapts a plain function into a Handler with a no-op
// CustomInitialize.
type HandlerFunc func(ctx context.Context, msg Message) (any, error)

// CustomInitialize implements Handler.
func (f HandlerFunc) CustomInitialize(context.Context) error { return nil }

// ProcessCustomMessage implements Handler.
func (f HandlerFunc) ProcessCustomMessage(ctx context.Context, msg Message) (any, error) {
	return f(ctx, msg)
}

// UnsupportedTypeError reports a message type the handler does not know.
type UnsupportedTypeError struct {
	MessageType string
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported message type: %s", e.MessageType)
}
