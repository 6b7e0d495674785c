package util

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewMessageID returns an identifier derived from agentID and the current
// time. The ULID suffix is monotonic within the process, so two calls never
// collide even within the same millisecond.
func NewMessageID(agentID string) string {
	return agentID + "_" + ulid.Make().String()
}

// NewID returns a random UUID string.
func NewID() string { return uuid.NewString() }
