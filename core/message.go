package core

import (
	"strings"
	"time"
)

// Message is one unit of work submitted to an agent. Handlers must treat it as
// read-only.
type Message struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	AgentID     string         `json:"agent_id"`
	MessageType string         `json:"message_type"`
	Payload     map[string]any `json:"payload"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Type returns the normalized (lowercase, trimmed) message type used for
// dispatch.
func (m Message) Type() string {
	return strings.ToLower(strings.TrimSpace(m.MessageType))
}

// String returns payload[key] as a string, or def when missing or not a string.
func (m Message) String(key, def string) string {
	if v, ok := m.Payload[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Int returns payload[key] as an int. JSON numbers decode as float64 and are
// accepted when integral.
func (m Message) Int(key string, def int) int {
	switch v := m.Payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		if v == float64(int64(v)) {
			return int(v)
		}
	}
	return def
}

// Strings returns payload[key] as a string slice. Non-string elements are
// skipped; def is returned when the key is missing or yields nothing.
func (m Message) Strings(key string, def []string) []string {
	var out []string
	switch v := m.Payload[key].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
