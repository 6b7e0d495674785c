package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/mcpagent/agent"
	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// countingDispatcher records the maximum number of concurrent calls.
type countingDispatcher struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	mu       sync.Mutex
	order    []string
	delay    time.Duration
}

func (d *countingDispatcher) ProcessMessage(_ context.Context, msg core.Message) core.Response {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		m := d.maxSeen.Load()
		if n <= m || d.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(d.delay)
	d.mu.Lock()
	d.order = append(d.order, msg.ID)
	d.mu.Unlock()
	return core.Succeed(msg.ID)
}

func TestSubmitBeforeStart(t *testing.T) {
	r := New(&countingDispatcher{})
	_, err := r.Submit(context.Background(), testutil.NewMessageBuilder("ping").Build())
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestStartTwice(t *testing.T) {
	r := New(&countingDispatcher{})
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()
	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyStarted)
}

func TestSerializesConcurrentSubmits(t *testing.T) {
	d := &countingDispatcher{delay: time.Millisecond}
	r := New(d, func(o *Options) { o.QueueSize = 4 })
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("m%d", i)
			resp, err := r.Submit(context.Background(), testutil.NewMessageBuilder("x").ID(id).Build())
			assert.NoError(t, err)
			assert.True(t, resp.Success)
			assert.Equal(t, id, resp.Data)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), d.maxSeen.Load())
	assert.Len(t, d.order, 25)
}

func TestPreservesSubmissionOrder(t *testing.T) {
	d := &countingDispatcher{}
	r := New(d)
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	for i := 0; i < 5; i++ {
		_, err := r.Submit(context.Background(), testutil.NewMessageBuilder("x").ID(fmt.Sprint(i)).Build())
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, d.order)
}

func TestSubmitAfterStop(t *testing.T) {
	r := New(&countingDispatcher{})
	require.NoError(t, r.Start(context.Background()))
	r.Stop()
	r.Stop()

	_, err := r.Submit(context.Background(), testutil.NewMessageBuilder("x").Build())
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, r.Start(context.Background()), ErrStopped)
}

func TestStopWithoutStart(t *testing.T) {
	r := New(&countingDispatcher{})
	assert.NotPanics(t, r.Stop)
}

func TestSubmitContextCancelled(t *testing.T) {
	d := &countingDispatcher{delay: 50 * time.Millisecond}
	r := New(d)
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := r.Submit(ctx, testutil.NewMessageBuilder("x").Build())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExpiredJobIsNotDispatched(t *testing.T) {
	d := &countingDispatcher{}
	r := New(d)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := r.handle(job{id: "j", ctx: ctx, msg: testutil.NewMessageBuilder("x").Build()})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "expired")
	assert.Empty(t, d.order)
}

func TestRateLimit(t *testing.T) {
	d := &countingDispatcher{}
	r := New(d, func(o *Options) {
		o.RateLimit = rate.Every(20 * time.Millisecond)
		o.Burst = 1
	})
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := r.Submit(context.Background(), testutil.NewMessageBuilder("x").Build())
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestRunnerDrivesAgent(t *testing.T) {
	a := agent.New(core.Config{AgentID: "a1"}, core.HandlerFunc(func(_ context.Context, msg core.Message) (any, error) {
		if msg.Type() == "ping" {
			return "pong", nil
		}
		return nil, &core.UnsupportedTypeError{MessageType: msg.Type()}
	}), func(o *agent.Options) { o.Logger = testutil.NewRecordingLogger() })
	require.NoError(t, a.Initialize(context.Background()))

	logger := testutil.NewRecordingLogger()
	r := New(a, func(o *Options) { o.Logger = logger })
	require.NoError(t, r.Start(context.Background()))

	resp, err := r.Submit(context.Background(), a.CreateMessage("PING", nil))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "pong", resp.Data)

	resp, err = r.Submit(context.Background(), a.CreateMessage("bogus", nil))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, core.StatusError, a.Status())

	r.Stop()
	assert.Len(t, logger.Find("Runner stopped"), 1)
}
