package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/mcpagent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "agent.yaml", `
agent_id: a1
agent_name: A
version: 2.0.0
description: d
log_level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, core.Config{
		AgentID:     "a1",
		AgentName:   "A",
		Version:     "2.0.0",
		Description: "d",
		LogLevel:    "DEBUG",
	}, cfg)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "agent.toml", `
agent_id = "weather-1"
agent_name = "Weather"
description = "weather data"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "weather-1", cfg.AgentID)
	assert.Equal(t, "Weather", cfg.AgentName)
	assert.Equal(t, DefaultVersion, cfg.Version)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "agent.yml", "agent_id: a1\nlog_level: INFO\n")
	t.Setenv(EnvAgentID, "from-env")
	t.Setenv(EnvLogLevel, "warning")
	t.Setenv(EnvDescription, "env description")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.AgentID)
	assert.Equal(t, "WARN", cfg.LogLevel)
	assert.Equal(t, "env description", cfg.Description)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "agent.json", "{}"))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(writeFile(t, "agent.yaml", "agent_id: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = Load(writeFile(t, "agent.yaml", "log_level: loud\n"))
	assert.ErrorContains(t, err, "invalid log_level")
}

func TestFinalizeDefaults(t *testing.T) {
	cfg, err := Finalize(core.Config{})
	require.NoError(t, err)
	assert.Len(t, cfg.AgentID, 36)
	assert.Equal(t, cfg.AgentID, cfg.AgentName)
	assert.Equal(t, DefaultVersion, cfg.Version)
	assert.Equal(t, core.DefaultLogLevel, cfg.LogLevel)
}

func TestSaveRoundTrip(t *testing.T) {
	want := core.Config{AgentID: "a1", AgentName: "A", Version: "1.0.0", Description: "d", LogLevel: "INFO"}
	for _, name := range []string{"agent.yaml", "agent.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(want, path))
			got, err := Parse(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
	assert.Error(t, Save(want, filepath.Join(t.TempDir(), "agent.ini")))
}
