package core

// Config carries the identity and static settings of one agent instance.
// It is created once at agent construction and never mutated afterwards.
type Config struct {
	AgentID     string `json:"agent_id" yaml:"agent_id" toml:"agent_id"`
	AgentName   string `json:"agent_name" yaml:"agent_name" toml:"agent_name"`
	Version     string `json:"version" yaml:"version" toml:"version"`
	Description string `json:"description" yaml:"description" toml:"description"`
	LogLevel    string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// DefaultLogLevel is applied when Config.LogLevel is empty.
const DefaultLogLevel = "INFO"

// Level returns the configured log level or DefaultLogLevel.
func (c Config) Level() string {
	if c.LogLevel == "" {
		return DefaultLogLevel
	}
	return c.LogLevel
}
