// Package logging provides a minimal logging interface and adapters for mcpagent.
//
// The Logger interface defines the standard leveled methods (Debug, Info, Warn,
// Error) that agents, runners and handlers use for observability. This package
// includes:
//
//   - Logger interface for dependency injection
//   - AgentLogger, a log/slog backed logger keyed by agent id
//   - SlogAdapter wrapping an existing *slog.Logger
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false).WithAgent("weather-1")
//	a := agent.New(cfg, handler, func(o *agent.Options) { o.Logger = logger })
//
// All methods take slog-style alternating key/value arguments.
package logging
