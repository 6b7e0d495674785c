package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/internal/util"
	"github.com/hupe1980/mcpagent/logging"
	"golang.org/x/time/rate"
)

var (
	// ErrNotStarted is returned by Submit before Start.
	ErrNotStarted = errors.New("runner not started")
	// ErrStopped is returned once the runner has been stopped.
	ErrStopped = errors.New("runner stopped")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("runner already started")
)

// Dispatcher is the subset of *agent.Agent a Runner drives.
type Dispatcher interface {
	ProcessMessage(ctx context.Context, msg core.Message) core.Response
}

// Options holds configuration overrides passed to New().
type Options struct {
	// QueueSize is the buffer of pending messages. Submit blocks when full.
	QueueSize int
	// RateLimit caps dispatches per second. Zero disables throttling.
	RateLimit rate.Limit
	// Burst is the limiter bucket size (defaults to 1 when RateLimit is set).
	Burst int
	// Logger for queue level events.
	Logger logging.Logger
}

type job struct {
	id       string
	ctx      context.Context
	msg      core.Message
	enqueued time.Time
	result   chan core.Response
}

// Runner serializes dispatch to a single agent. Public methods are safe for
// concurrent use.
type Runner struct {
	agent   Dispatcher
	jobs    chan job
	limiter *rate.Limiter
	logger  logging.Logger

	mu       sync.RWMutex
	started  bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New constructs a Runner with optional overrides.
func New(agent Dispatcher, optFns ...func(o *Options)) *Runner {
	opts := Options{
		QueueSize: 16,
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.RateLimit, burst)
	}

	return &Runner{
		agent:   agent,
		jobs:    make(chan job, opts.QueueSize),
		limiter: limiter,
		logger:  opts.Logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker goroutine. It exits when ctx is done or Stop is
// called.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-r.stop:
		return ErrStopped
	default:
	}

	if r.started {
		return ErrAlreadyStarted
	}
	r.started = true

	go r.loop(ctx)

	r.logger.Info("Runner started")

	return nil
}

// Submit enqueues msg and waits for its response. Responses are produced in
// submission order.
func (r *Runner) Submit(ctx context.Context, msg core.Message) (core.Response, error) {
	r.mu.RLock()
	started := r.started
	r.mu.RUnlock()

	if !started {
		return core.Response{}, ErrNotStarted
	}

	j := job{
		id:       util.NewID(),
		ctx:      ctx,
		msg:      msg,
		enqueued: time.Now(),
		result:   make(chan core.Response, 1),
	}

	select {
	case <-r.stop:
		return core.Response{}, ErrStopped
	case <-r.done:
		return core.Response{}, ErrStopped
	case <-ctx.Done():
		return core.Response{}, ctx.Err()
	case r.jobs <- j:
	}

	select {
	case resp := <-j.result:
		return resp, nil
	case <-ctx.Done():
		return core.Response{}, ctx.Err()
	case <-r.done:
		select {
		case resp := <-j.result:
			return resp, nil
		default:
			return core.Response{}, ErrStopped
		}
	}
}

// Stop signals the worker to exit after the message in flight and waits for
// it. Pending messages are abandoned; their Submit calls return ErrStopped.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })

	r.mu.RLock()
	started := r.started
	r.mu.RUnlock()

	if started {
		<-r.done
	}
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)
	defer r.logger.Info("Runner stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case j := <-r.jobs:
			j.result <- r.handle(j)
		}
	}
}

func (r *Runner) handle(j job) core.Response {
	if err := j.ctx.Err(); err != nil {
		r.logger.Warn("Dropping expired message", "job_id", j.id, "message_id", j.msg.ID)
		return core.Fail(fmt.Sprintf("message expired before dispatch: %v", err))
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(j.ctx); err != nil {
			r.logger.Warn("Rate limiter wait aborted", "job_id", j.id, "error", err.Error())
			return core.Fail(fmt.Sprintf("rate limit wait: %v", err))
		}
	}

	r.logger.Debug("Dispatching message",
		"job_id", j.id,
		"message_id", j.msg.ID,
		"message_type", j.msg.MessageType,
		"queued_for", time.Since(j.enqueued),
	)

	return r.agent.ProcessMessage(j.ctx, j.msg)
}
