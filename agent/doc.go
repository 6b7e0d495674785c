// Package agent contains the lifecycle core shared by every mcpagent agent.
//
// An Agent wraps a core.Handler (the domain hooks) and owns:
//
//  1. The status state machine (initializing → ready ⇄ processing → error, shutdown)
//  2. The dispatch contract: every hook failure, including a panic, becomes a
//     failed core.Response instead of escaping to the caller
//  3. Message envelope construction (CreateMessage)
//  4. One structured log sink keyed by agent id
//
// Concurrency model:
//   - At most one ProcessMessage call per Agent may be in flight. The caller
//     upholds this (see package runner for a single-consumer queue); the core
//     adds no mutual exclusion around dispatch.
//   - Status reads are atomic, so observing a stale value is possible but a
//     torn one is not.
//
// Initialization failures propagate to the caller of Initialize, while
// per-message failures degrade into responses.
package agent
