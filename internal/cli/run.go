package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/mcpagent"
	"github.com/hupe1980/mcpagent/agent"
	"github.com/hupe1980/mcpagent/config"
	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/internal/tracing"
	"github.com/hupe1980/mcpagent/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 5 * time.Second

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Host an agent over stdin/stdout",
		Long: `Run creates and initializes an agent, then reads one JSON request per line
from stdin, e.g. {"id": "1", "type": "ping", "payload": {}}, and writes one
JSON response per line to stdout. Logs go to stderr.`,
		Example: `  echo '{"type": "current_weather", "payload": {"city": "Lisbon"}}' | mcpagent run --kind weather
  mcpagent run --kind finance --config agent.yaml --offline`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("binding flags: %w", err)
			}
			return run(cmd, v)
		},
	}

	f := cmd.Flags()
	f.String("kind", KindPing, "Agent kind: ping, weather, finance or assistant")
	f.String("config", "", "Agent config file (.yaml, .yml or .toml)")
	f.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	f.String("log-format", "json", "Log format: json or text")
	f.Int("queue-size", 16, "Pending request buffer")
	f.Float64("rate-limit", 0, "Maximum dispatches per second (0 disables)")
	f.Int("burst", 1, "Rate limiter burst")
	f.String("weather-api-key", "", "OpenWeatherMap API key (weather agent)")
	f.Bool("offline", false, "Serve simulated data only (finance agent)")
	f.String("provider", "openai", "Model provider: openai, anthropic or mock (assistant agent)")
	f.String("model", "", "Model name override (assistant agent)")
	f.String("instructions", "", "Default system prompt (assistant agent)")
	f.String("trace", "", "Trace exporter: stdout or noop (spans go to stderr)")

	return cmd
}

func run(cmd *cobra.Command, v *viper.Viper) error {
	kind := v.GetString("kind")

	cfg, err := loadConfig(v, kind)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: v.GetString("log-format"),
		Output: cmd.ErrOrStderr(),
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	shutdownTracing, err := tracing.Setup(ctx, v.GetString("trace"), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	handler, err := newHandler(kind, cfg, v, logger)
	if err != nil {
		return err
	}

	a := agent.New(cfg, handler, func(o *agent.Options) { o.Logger = logger })

	if err := a.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize %s agent: %w", kind, err)
	}

	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.Shutdown(sctx); err != nil {
			logger.Error("Shutdown failed", "error", err.Error())
		}
	}()

	host := mcpagent.New(a, func(o *mcpagent.Options) {
		o.QueueSize = v.GetInt("queue-size")
		o.RateLimit = rate.Limit(v.GetFloat64("rate-limit"))
		o.Burst = v.GetInt("burst")
		o.Logger = logger.WithComponent("host")
	})

	return host.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}

func loadConfig(v *viper.Viper, kind string) (core.Config, error) {
	var cfg core.Config

	if path := v.GetString("config"); path != "" {
		parsed, err := config.Parse(path)
		if err != nil {
			return core.Config{}, err
		}
		cfg = parsed
	}

	cfg = config.FromEnv(cfg)
	if lvl := v.GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if cfg.AgentName == "" {
		cfg.AgentName = kind + "-agent"
	}

	return config.Finalize(cfg)
}
