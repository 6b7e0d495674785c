package agent

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync/atomic"
	"time"

	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/internal/tracing"
	"github.com/hupe1980/mcpagent/internal/util"
	"github.com/hupe1980/mcpagent/logging"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Options configures an Agent.
type Options struct {
	// Logger receives lifecycle and dispatch records. When nil a JSON slog
	// logger at Config.LogLevel is created for the agent.
	Logger logging.Logger
	// Now returns the current time; overridable for deterministic tests.
	Now func() time.Time
	// TracerProvider receives one span per ProcessMessage call. Defaults to
	// the global provider.
	TracerProvider trace.TracerProvider
}

// Agent is the lifecycle core around a core.Handler.
type Agent struct {
	config  core.Config
	handler core.Handler
	status  atomic.Int32
	logger  logging.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// New constructs an Agent in StatusInitializing. The log sink is created here
// and lives as long as the agent.
func New(cfg core.Config, handler core.Handler, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Now: time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		level, err := logging.ParseLevel(cfg.Level())
		if err != nil {
			level = logging.LogLevelInfo
		}
		opts.Logger = logging.NewSlogLogger(level, "json", false)
	}

	var logger logging.Logger
	if al, ok := opts.Logger.(*logging.AgentLogger); ok {
		logger = al.WithAgent(cfg.AgentID).WithComponent("agent")
	} else {
		logger = logging.WithArgs(opts.Logger, "agent_id", cfg.AgentID)
	}

	a := &Agent{
		config:  cfg,
		handler: handler,
		logger:  logger,
		tracer:  tracing.Tracer(opts.TracerProvider),
		now:     opts.Now,
	}
	a.status.Store(int32(core.StatusInitializing))

	return a
}

// Config returns the agent's immutable configuration.
func (a *Agent) Config() core.Config { return a.config }

// ID returns the agent id.
func (a *Agent) ID() string { return a.config.AgentID }

// Status returns the current lifecycle status.
func (a *Agent) Status() core.Status { return core.Status(a.status.Load()) }

// Logger returns the agent's log sink.
func (a *Agent) Logger() logging.Logger { return a.logger }

// Initialize moves the agent from initializing to ready and then runs the
// handler's CustomInitialize. A hook failure is returned unchanged in meaning
// and leaves the agent ready; callers should discard such an instance.
func (a *Agent) Initialize(ctx context.Context) error {
	if !a.transition(core.StatusInitializing, core.StatusReady) {
		return fmt.Errorf("%w: initialize requires status %s, got %s", ErrInvalidState, core.StatusInitializing, a.Status())
	}

	if err := a.handler.CustomInitialize(ctx); err != nil {
		a.logger.Error("Custom initialization failed", "error", err.Error())
		return fmt.Errorf("custom initialize: %w", err)
	}

	a.logger.Info("Agent initialized",
		"agent_name", a.config.AgentName,
		"version", a.config.Version,
	)

	return nil
}

// ProcessMessage dispatches msg to the handler and converts the outcome into
// a response. It never returns an error and never panics because of the
// handler.
//
//   - status != ready: failed response, no transition
//   - hook success: ready, successful response carrying the hook result
//   - hook failure or panic: error, failed response carrying the reason
//   - hook aborted by ctx cancellation: ready, failed response
func (a *Agent) ProcessMessage(ctx context.Context, msg core.Message) core.Response {
	ctx, span := a.tracer.Start(ctx, "agent.process_message", trace.WithAttributes(
		tracing.StringAttr("agent.id", a.config.AgentID),
		tracing.StringAttr("message.id", msg.ID),
		tracing.StringAttr("message.type", msg.Type()),
	))
	defer span.End()

	current := a.Status()
	if current != core.StatusReady {
		a.logger.Warn("Message rejected",
			"message_id", msg.ID,
			"message_type", msg.MessageType,
			"status", current.String(),
		)
		reason := fmt.Sprintf("agent not ready, status=%s", current)
		span.SetStatus(codes.Error, reason)
		return core.Fail(reason)
	}

	a.setStatus(core.StatusProcessing)

	start := time.Now()
	result, err := a.dispatch(ctx, msg)
	dur := time.Since(start)

	if err == nil {
		a.transition(core.StatusProcessing, core.StatusReady)
		a.logDispatch(msg, dur, nil)
		tracing.SetOK(span)
		return core.Succeed(result)
	}

	tracing.RecordError(span, err)

	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		a.transition(core.StatusProcessing, core.StatusReady)
		a.logDispatch(msg, dur, err)
		return core.Fail(errorText(err))
	}

	a.transition(core.StatusProcessing, core.StatusError)
	a.logDispatch(msg, dur, err)

	return core.Fail(errorText(err))
}

// CreateMessage builds a message originating from this agent. It is a pure
// factory: safe in any state and free of status changes.
func (a *Agent) CreateMessage(messageType string, payload map[string]any) core.Message {
	if payload == nil {
		payload = map[string]any{}
	} else {
		payload = maps.Clone(payload)
	}

	return core.Message{
		ID:          util.NewMessageID(a.config.AgentID),
		Timestamp:   a.now(),
		AgentID:     a.config.AgentID,
		MessageType: messageType,
		Payload:     payload,
		Metadata:    map[string]any{},
	}
}

// Reset returns an agent in error back to ready. Any other status yields
// ErrInvalidState.
func (a *Agent) Reset(_ context.Context) error {
	if !a.transition(core.StatusError, core.StatusReady) {
		return fmt.Errorf("%w: reset requires status %s, got %s", ErrInvalidState, core.StatusError, a.Status())
	}
	a.logger.Warn("Agent reset after error")
	return nil
}

// Shutdown moves the agent to the terminal shutdown status from any status
// and releases handler resources when the handler implements core.Shutdowner.
// Repeated calls are no-ops.
func (a *Agent) Shutdown(ctx context.Context) error {
	prev := core.Status(a.status.Swap(int32(core.StatusShutdown)))
	if prev == core.StatusShutdown {
		return nil
	}
	a.logTransition(prev, core.StatusShutdown)

	if s, ok := a.handler.(core.Shutdowner); ok {
		if err := s.Shutdown(ctx); err != nil {
			a.logger.Error("Handler shutdown failed", "error", err.Error())
			return fmt.Errorf("handler shutdown: %w", err)
		}
	}

	a.logger.Info("Agent shut down")

	return nil
}

func (a *Agent) dispatch(ctx context.Context, msg core.Message) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{Value: r}
			if al, ok := a.logger.(*logging.AgentLogger); ok {
				al.ErrorWithStack(pe, "Handler panicked", "message_id", msg.ID)
			}
			result, err = nil, pe
		}
	}()

	return a.handler.ProcessCustomMessage(ctx, msg)
}

// transition performs from → to only if the agent is still in from. A
// concurrent Shutdown therefore stays terminal.
func (a *Agent) transition(from, to core.Status) bool {
	if !a.status.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	a.logTransition(from, to)
	return true
}

func (a *Agent) setStatus(to core.Status) {
	from := core.Status(a.status.Swap(int32(to)))
	if from != to {
		a.logTransition(from, to)
	}
}

func (a *Agent) logTransition(from, to core.Status) {
	if al, ok := a.logger.(*logging.AgentLogger); ok {
		al.LogTransition(from, to)
		return
	}
	a.logger.Info("Status changed", "from", from.String(), "to", to.String())
}

func (a *Agent) logDispatch(msg core.Message, dur time.Duration, err error) {
	if al, ok := a.logger.(*logging.AgentLogger); ok {
		al.WithContext("message_id", msg.ID).LogDispatch(msg.MessageType, dur, err == nil, err)
		return
	}
	if err != nil {
		a.logger.Error("Message processing failed",
			"message_id", msg.ID,
			"message_type", msg.MessageType,
			"duration", dur,
			"error", err.Error(),
		)
		return
	}
	a.logger.Debug("Message processed",
		"message_id", msg.ID,
		"message_type", msg.MessageType,
		"duration", dur,
	)
}

func errorText(err error) string {
	if s := err.Error(); s != "" {
		return s
	}
	return "message processing failed"
}
