package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable bound to a flag.
const EnvPrefix = "MCPAGENT"

// BuildInfo is injected via ldflags by the main package.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewRootCmd builds the command tree. Flags fall back to MCPAGENT_* environment
// variables, e.g. --weather-api-key reads MCPAGENT_WEATHER_API_KEY.
func NewRootCmd(info BuildInfo) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "mcpagent",
		Short: "Run MCP-style agents",
		Long: `mcpagent hosts a single agent (ping, weather, finance or assistant) and
dispatches line-delimited JSON requests from stdin, writing one JSON response per line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(v))
	root.AddCommand(newVersionCmd(info))

	return root
}

// Execute runs the root command with build info injected via ldflags.
func Execute(info BuildInfo) error {
	return NewRootCmd(info).Execute()
}
