package testutil

import (
	"time"

	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/internal/util"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := NewMessageBuilder("ping").Agent("a1").Payload("k", "v").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type MessageBuilder struct {
	id          string
	agentID     string
	messageType string
	timestamp   time.Time
	payload     map[string]any
	metadata    map[string]any
}

// NewMessageBuilder creates a builder for a message of the given type
// originating from agent "test".
func NewMessageBuilder(messageType string) *MessageBuilder {
	return &MessageBuilder{
		agentID:     "test",
		messageType: messageType,
		payload:     map[string]any{},
		metadata:    map[string]any{},
	}
}

// ID overrides the generated message id (chainable).
func (b *MessageBuilder) ID(id string) *MessageBuilder { b.id = id; return b }

// Agent sets the origin agent id (chainable).
func (b *MessageBuilder) Agent(id string) *MessageBuilder { b.agentID = id; return b }

// At sets the timestamp (chainable).
func (b *MessageBuilder) At(ts time.Time) *MessageBuilder { b.timestamp = ts; return b }

// Payload sets a payload key (chainable).
func (b *MessageBuilder) Payload(key string, val any) *MessageBuilder {
	b.payload[key] = val
	return b
}

// Meta sets a metadata key (chainable).
func (b *MessageBuilder) Meta(key string, val any) *MessageBuilder {
	b.metadata[key] = val
	return b
}

// Build returns the message.
func (b *MessageBuilder) Build() core.Message {
	id := b.id
	if id == "" {
		id = util.NewMessageID(b.agentID)
	}
	ts := b.timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return core.Message{
		ID:          id,
		Timestamp:   ts,
		AgentID:     b.agentID,
		MessageType: b.messageType,
		Payload:     b.payload,
		Metadata:    b.metadata,
	}
}
