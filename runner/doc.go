// Package runner provides the single-consumer queue that serializes message
// dispatch to one agent.
//
// The lifecycle core assumes at most one in-flight ProcessMessage call per
// agent and leaves enforcement to the caller. A Runner is that caller: any
// number of goroutines may Submit concurrently, and exactly one worker
// goroutine forwards each message to the agent in submission order.
//
// Usage:
//
//	r := runner.New(a, func(o *runner.Options) { o.QueueSize = 32 })
//	if err := r.Start(ctx); err != nil { ... }
//	defer r.Stop()
//	resp, err := r.Submit(ctx, a.CreateMessage("ping", nil))
//
// Submit returns an error only for queue-level problems (not started,
// stopped, caller context done). Domain failures arrive as failed responses.
package runner
