package cli

import (
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/mcpagent/assistant"
	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/finance"
	"github.com/hupe1980/mcpagent/logging"
	"github.com/hupe1980/mcpagent/model"
	"github.com/hupe1980/mcpagent/model/anthropic"
	"github.com/hupe1980/mcpagent/model/openai"
	"github.com/hupe1980/mcpagent/ping"
	"github.com/hupe1980/mcpagent/weather"
	"github.com/spf13/viper"
)

// Agent kinds accepted by --kind.
const (
	KindPing      = "ping"
	KindWeather   = "weather"
	KindFinance   = "finance"
	KindAssistant = "assistant"
)

func newHandler(kind string, cfg core.Config, v *viper.Viper, logger *logging.AgentLogger) (core.Handler, error) {
	hl := logger.WithComponent(kind)

	switch kind {
	case KindPing:
		return ping.New(cfg, func(o *ping.Options) { o.Logger = hl }), nil
	case KindWeather:
		return weather.New(func(o *weather.Options) {
			o.APIKey = v.GetString("weather-api-key")
			o.Logger = hl
		}), nil
	case KindFinance:
		return finance.New(func(o *finance.Options) {
			o.Offline = v.GetBool("offline")
			o.Logger = hl
		}), nil
	case KindAssistant:
		m, err := newModel(v.GetString("provider"), v.GetString("model"))
		if err != nil {
			return nil, err
		}
		return assistant.New(m, func(o *assistant.Options) {
			if s := v.GetString("instructions"); s != "" {
				o.Instructions = s
			}
			o.Logger = hl
		}), nil
	default:
		return nil, fmt.Errorf("unknown agent kind %q (want ping, weather, finance or assistant)", kind)
	}
}

func newModel(provider, name string) (model.Model, error) {
	switch provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if name != "" {
				o.Model = name
			}
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if name != "" {
				o.Model = anthropicsdk.Model(name)
			}
		}), nil
	case "mock":
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name, "mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q (want openai, anthropic or mock)", provider)
	}
}
