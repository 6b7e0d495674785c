// Package assistant implements an LLM-backed agent. It answers free-form
// prompts through any model.Model (OpenAI, Anthropic or a mock).
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/internal/tracing"
	"github.com/hupe1980/mcpagent/internal/util"
	"github.com/hupe1980/mcpagent/logging"
	"github.com/hupe1980/mcpagent/model"
	"go.opentelemetry.io/otel/trace"
)

// Message types understood by Handler.
const (
	TypePing = "ping"
	TypeAsk  = "ask"
)

// DefaultInstructions is the system prompt used when neither the handler nor
// the message supplies one.
const DefaultInstructions = "You are a concise, helpful assistant."

var askSchema = util.MustCompileSchema("ask.json", `{
	"type": "object",
	"properties": {
		"prompt": {"type": "string", "minLength": 1},
		"instructions": {"type": "string"}
	},
	"required": ["prompt"]
}`)

// Answer is the result of an ask message.
type Answer struct {
	Text     string            `json:"text"`
	Model    string            `json:"model"`
	Provider string            `json:"provider"`
	Usage    *model.TokenUsage `json:"usage,omitempty"`
}

// Options configures the assistant handler.
type Options struct {
	// Instructions is the default system prompt template.
	Instructions string
	// Timeout bounds one model call; zero means no extra bound.
	Timeout time.Duration
	Logger  logging.Logger
	// TracerProvider receives one span per model call. Defaults to the
	// global provider.
	TracerProvider trace.TracerProvider
}

// Handler forwards prompts to a model.
type Handler struct {
	model  model.Model
	opts   Options
	logger logging.Logger
	tracer trace.Tracer
}

// New creates an assistant handler backed by m.
func New(m model.Model, optFns ...func(o *Options)) *Handler {
	opts := Options{
		Instructions: DefaultInstructions,
		Timeout:      60 * time.Second,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Handler{
		model:  m,
		opts:   opts,
		logger: opts.Logger,
		tracer: tracing.Tracer(opts.TracerProvider),
	}
}

// CustomInitialize checks that a model is configured.
func (h *Handler) CustomInitialize(_ context.Context) error {
	if h.model == nil {
		return errors.New("no model configured")
	}
	info := h.model.Info()
	h.logger.Info("Assistant ready", "model", info.Name, "provider", info.Provider)
	return nil
}

// ProcessCustomMessage implements core.Handler.
func (h *Handler) ProcessCustomMessage(ctx context.Context, msg core.Message) (any, error) {
	switch msg.Type() {
	case TypePing:
		return map[string]any{"response": "pong", "agent": "assistant", "status": "online"}, nil
	case TypeAsk:
		return h.ask(ctx, msg)
	default:
		return nil, &core.UnsupportedTypeError{MessageType: msg.MessageType}
	}
}

func (h *Handler) ask(ctx context.Context, msg core.Message) (Answer, error) {
	if err := askSchema.Validate(msg.Payload); err != nil {
		return Answer{}, err
	}

	instructions, err := util.RenderTemplate(msg.String("instructions", h.opts.Instructions), msg.Payload)
	if err != nil {
		return Answer{}, fmt.Errorf("render instructions: %w", err)
	}

	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()
	}

	info := h.model.Info()
	ctx, span := h.tracer.Start(ctx, "assistant.model_call", trace.WithAttributes(
		tracing.StringAttr("model.name", info.Name),
		tracing.StringAttr("model.provider", info.Provider),
	))
	defer span.End()

	start := time.Now()
	resp, err := h.model.Generate(ctx, model.Request{
		Instructions: instructions,
		Prompt:       msg.String("prompt", ""),
	})
	h.logModelCall(info.Name, resp.Usage, time.Since(start), err)
	if err != nil {
		tracing.RecordError(span, err)
		return Answer{}, err
	}

	if resp.Usage != nil {
		span.SetAttributes(tracing.IntAttr("model.total_tokens", resp.Usage.TotalTokens))
	}
	tracing.SetOK(span)

	return Answer{
		Text:     resp.Text,
		Model:    info.Name,
		Provider: info.Provider,
		Usage:    resp.Usage,
	}, nil
}

func (h *Handler) logModelCall(name string, usage *model.TokenUsage, dur time.Duration, err error) {
	tokens := 0
	if usage != nil {
		tokens = usage.TotalTokens
	}

	if al, ok := h.logger.(*logging.AgentLogger); ok {
		al.LogModelCall(name, tokens, dur, err == nil, err)
		return
	}

	if err != nil {
		h.logger.Error("Model call failed", "model", name, "duration", dur, "error", err.Error())
		return
	}
	h.logger.Info("Model call completed", "model", name, "token_count", tokens, "duration", dur)
}

var _ core.Handler = (*Handler)(nil)
