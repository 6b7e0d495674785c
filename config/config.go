// Package config loads agent configuration from YAML or TOML files with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/logging"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// EnvAgentID overrides agent_id.
	EnvAgentID = "MCPAGENT_AGENT_ID"
	// EnvAgentName overrides agent_name.
	EnvAgentName = "MCPAGENT_AGENT_NAME"
	// EnvVersion overrides version.
	EnvVersion = "MCPAGENT_VERSION"
	// EnvDescription overrides description.
	EnvDescription = "MCPAGENT_DESCRIPTION"
	// EnvLogLevel overrides log_level.
	EnvLogLevel = "MCPAGENT_LOG_LEVEL"

	// DefaultVersion is applied when version is empty.
	DefaultVersion = "1.0.0"
)

// Load reads path (YAML for .yaml/.yml, TOML for .toml), applies environment
// overrides and defaults, and validates the result.
func Load(path string) (core.Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return core.Config{}, err
	}
	return Finalize(FromEnv(cfg))
}

// Parse decodes path without applying overrides or defaults.
func Parse(path string) (core.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg core.Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return core.Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return core.Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		return core.Config{}, fmt.Errorf("unsupported config format %q", ext)
	}

	return cfg, nil
}

// FromEnv returns cfg with MCPAGENT_* environment overrides applied.
func FromEnv(cfg core.Config) core.Config {
	if v := os.Getenv(EnvAgentID); v != "" {
		cfg.AgentID = v
	}
	if v := os.Getenv(EnvAgentName); v != "" {
		cfg.AgentName = v
	}
	if v := os.Getenv(EnvVersion); v != "" {
		cfg.Version = v
	}
	if v := os.Getenv(EnvDescription); v != "" {
		cfg.Description = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// Finalize applies defaults and validates cfg.
//
// A missing agent_id is replaced by a random UUID and a missing agent_name
// falls back to the id.
func Finalize(cfg core.Config) (core.Config, error) {
	if cfg.AgentID == "" {
		cfg.AgentID = uuid.NewString()
	}
	if cfg.AgentName == "" {
		cfg.AgentName = cfg.AgentID
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = core.DefaultLogLevel
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return core.Config{}, fmt.Errorf("invalid log_level: %w", err)
	}
	cfg.LogLevel = level.String()

	return cfg, nil
}

// Save writes cfg to path in the format implied by its extension.
func Save(cfg core.Config, path string) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	case ".toml":
		data, err = toml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
