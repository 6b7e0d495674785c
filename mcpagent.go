// Package mcpagent provides a high-level façade for hosting a single agent
// over a line-delimited JSON stream. Most applications interact with this
// package by:
//  1. Building a core.Handler (ping, weather, finance, assistant or custom)
//  2. Wrapping it in an agent.Agent via agent.New and calling Initialize
//  3. Handing the agent to New and calling Serve with an input and output stream
//
// Each input line is a Request; each output line is a Reply. Dispatch is
// serialized through a runner so the agent never sees concurrent calls.
package mcpagent

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/mcpagent/agent"
	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/logging"
	"github.com/hupe1980/mcpagent/runner"
	"golang.org/x/time/rate"
)

// Version is the module release.
const Version = "0.1.0"

const maxLineBytes = 1 << 20

// Request is one input line.
type Request struct {
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type"`
	Payload  map[string]any `json:"payload,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Reply is one output line: the agent response tagged with the message id.
type Reply struct {
	ID string `json:"id,omitempty"`
	core.Response
}

// Options configures the Host.
type Options struct {
	// QueueSize is the runner's pending message buffer.
	QueueSize int
	// RateLimit caps dispatches per second. Zero disables throttling.
	RateLimit rate.Limit
	// Burst is the limiter bucket size.
	Burst int
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Host drives one agent from a stream of requests.
type Host struct {
	agent  *agent.Agent
	opts   Options
	logger logging.Logger
}

// New creates a Host for an initialized agent.
func New(a *agent.Agent, optFns ...func(o *Options)) *Host {
	opts := Options{
		QueueSize: 16,
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Host{agent: a, opts: opts, logger: opts.Logger}
}

// Agent returns the hosted agent.
func (h *Host) Agent() *agent.Agent { return h.agent }

// Serve reads requests from in until EOF or ctx is done and writes one reply
// per request to out. Malformed lines yield a failed reply and do not stop
// the loop. The agent is not shut down by Serve.
func (h *Host) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	r := runner.New(h.agent, func(o *runner.Options) {
		o.QueueSize = h.opts.QueueSize
		o.RateLimit = h.opts.RateLimit
		o.Burst = h.opts.Burst
		o.Logger = h.logger
	})
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply, err := h.handleLine(ctx, r, line)
		if err != nil {
			return err
		}

		if err := enc.Encode(reply); err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}

	return nil
}

func (h *Host) handleLine(ctx context.Context, r *runner.Runner, line string) (Reply, error) {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		h.logger.Warn("Malformed request", "error", err.Error())
		return Reply{Response: core.Fail("invalid request: " + err.Error())}, nil
	}
	if strings.TrimSpace(req.Type) == "" {
		return Reply{ID: req.ID, Response: core.Fail("invalid request: missing type")}, nil
	}

	msg := h.agent.CreateMessage(req.Type, req.Payload)
	if req.ID != "" {
		msg.ID = req.ID
	}
	for k, v := range req.Metadata {
		msg.Metadata[k] = v
	}

	resp, err := r.Submit(ctx, msg)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, runner.ErrStopped) {
			return Reply{}, err
		}
		return Reply{ID: msg.ID, Response: core.Fail(err.Error())}, nil
	}

	return Reply{ID: msg.ID, Response: resp}, nil
}
