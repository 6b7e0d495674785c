// Package ping implements the simple template agent: liveness, echo and
// status reporting. It is the smallest complete core.Handler and the starting
// point for custom agents.
package ping

import (
	"context"
	"time"

	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/internal/util"
	"github.com/hupe1980/mcpagent/logging"
)

// Message types understood by Handler.
const (
	TypePing   = "ping"
	TypeEcho   = "echo"
	TypeStatus = "status"
)

var echoSchema = util.MustCompileSchema("echo.json", `{
	"type": "object",
	"properties": {
		"message": {"type": "string"}
	},
	"required": ["message"]
}`)

// Options configures the ping handler.
type Options struct {
	Logger logging.Logger
	Now    func() time.Time
}

// Handler answers ping, echo and status messages.
type Handler struct {
	config    core.Config
	logger    logging.Logger
	now       func() time.Time
	startedAt time.Time
}

// New creates a ping handler reporting the identity in cfg.
func New(cfg core.Config, optFns ...func(o *Options)) *Handler {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Handler{
		config: cfg,
		logger: opts.Logger,
		now:    opts.Now,
	}
}

// CustomInitialize records the start time used for uptime reporting.
func (h *Handler) CustomInitialize(_ context.Context) error {
	h.startedAt = h.now()
	h.logger.Info("Ping agent initializing", "agent_id", h.config.AgentID)
	return nil
}

// ProcessCustomMessage implements core.Handler.
func (h *Handler) ProcessCustomMessage(_ context.Context, msg core.Message) (any, error) {
	switch msg.Type() {
	case TypePing:
		return map[string]any{
			"response": "pong",
			"agent":    h.config.AgentName,
			"status":   "online",
		}, nil
	case TypeEcho:
		if err := echoSchema.Validate(msg.Payload); err != nil {
			return nil, err
		}
		return map[string]any{
			"message":    msg.Payload["message"],
			"message_id": msg.ID,
		}, nil
	case TypeStatus:
		return map[string]any{
			"agent_id":    h.config.AgentID,
			"agent_name":  h.config.AgentName,
			"version":     h.config.Version,
			"description": h.config.Description,
			"uptime":      h.now().Sub(h.startedAt).Round(time.Millisecond).String(),
		}, nil
	default:
		return nil, &core.UnsupportedTypeError{MessageType: msg.MessageType}
	}
}

var _ core.Handler = (*Handler)(nil)
