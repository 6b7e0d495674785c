package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringer string

func (s stringer) String() string { return string(s) }

func newBufferLogger(level LogLevel) (*AgentLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = buf
	return NewLogger(cfg), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"DEBUG", LogLevelDebug, false},
		{"info", LogLevelInfo, false},
		{"", LogLevelInfo, false},
		{"Warning", LogLevelWarn, false},
		{"WARN", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"CRITICAL", LogLevelError, false},
		{"verbose", LogLevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAgentLoggerAttachesAgentID(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)
	l.WithAgent("a1").WithComponent("agent").Info("hello", "k", "v")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "hello", lines[0]["msg"])
	assert.Equal(t, "a1", lines[0]["agent_id"])
	assert.Equal(t, "agent", lines[0]["component"])
	assert.Equal(t, "v", lines[0]["k"])
}

func TestAgentLoggerRespectsLevel(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "w", lines[0]["msg"])
	assert.Equal(t, "e", lines[1]["msg"])
}

func TestAgentLoggerCloneIsolation(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	child := l.WithContext("extra", 1)
	l.Info("parent")
	child.Info("child")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	_, ok := lines[0]["extra"]
	assert.False(t, ok)
	assert.EqualValues(t, 1, lines[1]["extra"])
}

func TestLogTransitionAndDispatch(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)
	l.LogTransition(stringer("ready"), stringer("processing"))
	l.LogDispatch("ping", time.Millisecond, true, nil)
	l.LogDispatch("bogus", time.Millisecond, false, errors.New("unsupported"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "ready", lines[0]["from"])
	assert.Equal(t, "processing", lines[0]["to"])
	assert.Equal(t, "DEBUG", lines[1]["level"])
	assert.Equal(t, "ERROR", lines[2]["level"])
	assert.Equal(t, "unsupported", lines[2]["error"])
}

func TestErrorWithStack(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.ErrorWithStack(errors.New("boom"), "panic recovered")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Contains(t, lines[0]["stack_trace"], "goroutine")
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x", "k", "v")
		l.Warn("x")
		l.Error("x")
	})
}

type captureLogger struct {
	NoOpLogger
	args []any
}

func (c *captureLogger) Info(_ string, args ...any) { c.args = args }

func TestWithArgs(t *testing.T) {
	c := &captureLogger{}
	WithArgs(c, "agent_id", "a1").Info("x", "k", "v")
	assert.Equal(t, []any{"agent_id", "a1", "k", "v"}, c.args)

	assert.Equal(t, NoOpLogger{}, WithArgs(nil, "k", "v"))

	l, buf := newBufferLogger(LogLevelInfo)
	WithArgs(l, "agent_id", "a2").Info("y")
	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "a2", lines[0]["agent_id"])
}
