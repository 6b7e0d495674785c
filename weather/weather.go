// Package weather implements an agent answering weather queries from the
// OpenWeatherMap API, falling back to simulated data when no API key is
// configured or the upstream call fails.
package weather

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/internal/httpx"
	"github.com/hupe1980/mcpagent/internal/util"
	"github.com/hupe1980/mcpagent/logging"
)

// Message types understood by Handler.
const (
	TypePing      = "ping"
	TypeCurrent   = "current_weather"
	TypeForecast  = "forecast"
	TypeMultiCity = "multi_city_weather"
)

const (
	// DefaultBaseURL is the OpenWeatherMap v2.5 endpoint.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// SourceAPI marks data fetched from OpenWeatherMap.
	SourceAPI = "OpenWeatherMap"
	// SourceSimulated marks generated data.
	SourceSimulated = "simulated"

	defaultCity = "São Paulo"
	defaultDays = 5
	maxDays     = 5
)

var defaultCities = []string{"São Paulo", "Rio de Janeiro"}

var payloadSchema = util.MustCompileSchema("weather.json", `{
	"type": "object",
	"properties": {
		"city": {"type": "string", "minLength": 1},
		"days": {"type": "integer", "minimum": 1, "maximum": 5},
		"cities": {"type": "array", "items": {"type": "string", "minLength": 1}, "maxItems": 20}
	}
}`)

var conditions = []string{"sunny", "partly cloudy", "cloudy", "rainy", "stormy"}

// Options configures the weather handler.
type Options struct {
	// APIKey enables live OpenWeatherMap queries.
	APIKey string
	// BaseURL overrides DefaultBaseURL.
	BaseURL string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// Logger for upstream failures and fallbacks.
	Logger logging.Logger
	// Rand drives simulated data.
	Rand *rand.Rand
	// Now returns the current time.
	Now func() time.Time
}

// Handler serves weather messages. It is not safe for concurrent use, in
// line with the one-in-flight-message contract of the agent core.
type Handler struct {
	opts   Options
	client *httpx.Client
	logger logging.Logger
	rnd    *rand.Rand
	now    func() time.Time
}

// New creates a weather handler.
func New(optFns ...func(o *Options)) *Handler {
	opts := Options{
		BaseURL: DefaultBaseURL,
		Logger:  logging.NoOpLogger{},
		Now:     time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	rnd := opts.Rand
	if rnd == nil {
		seed := uint64(opts.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1))
	}

	return &Handler{
		opts:   opts,
		logger: opts.Logger,
		rnd:    rnd,
		now:    opts.Now,
	}
}

// CustomInitialize creates the upstream client.
func (h *Handler) CustomInitialize(_ context.Context) error {
	h.client = httpx.New("openweathermap", func(o *httpx.Options) {
		o.HTTPClient = h.opts.HTTPClient
		o.Logger = h.logger
	})

	if h.opts.APIKey == "" {
		h.logger.Warn("No API key configured, serving simulated weather data")
	} else {
		h.logger.Info("API key configured, serving live weather data")
	}

	return nil
}

// ProcessCustomMessage implements core.Handler.
func (h *Handler) ProcessCustomMessage(ctx context.Context, msg core.Message) (any, error) {
	if h.client == nil {
		return nil, errors.New("weather handler not initialized")
	}

	switch msg.Type() {
	case TypePing:
		return map[string]any{"response": "pong", "agent": "weather", "status": "online"}, nil
	case TypeCurrent:
		if err := payloadSchema.Validate(msg.Payload); err != nil {
			return nil, err
		}
		return h.current(ctx, msg.String("city", defaultCity)), nil
	case TypeForecast:
		if err := payloadSchema.Validate(msg.Payload); err != nil {
			return nil, err
		}
		return h.forecast(ctx, msg.String("city", defaultCity), msg.Int("days", defaultDays)), nil
	case TypeMultiCity:
		if err := payloadSchema.Validate(msg.Payload); err != nil {
			return nil, err
		}
		return h.multiCity(ctx, msg.Strings("cities", defaultCities))
	default:
		return nil, &core.UnsupportedTypeError{MessageType: msg.MessageType}
	}
}

// Shutdown releases pooled connections.
func (h *Handler) Shutdown(_ context.Context) error {
	if h.client != nil {
		h.client.CloseIdleConnections()
	}
	h.logger.Info("Weather agent stopped")
	return nil
}

func (h *Handler) live() bool { return h.opts.APIKey != "" }

func (h *Handler) query(city string) url.Values {
	return url.Values{
		"q":     {city},
		"appid": {h.opts.APIKey},
		"units": {"metric"},
	}
}

func (h *Handler) current(ctx context.Context, city string) Current {
	if !h.live() {
		return h.simulatedCurrent(city)
	}

	var raw owmCurrent
	if err := h.client.GetJSON(ctx, h.opts.BaseURL+"/weather", h.query(city), &raw); err != nil {
		h.logger.Error("Current weather query failed, using simulated data", "city", city, "error", err.Error())
		return h.simulatedCurrent(city)
	}

	desc := ""
	if len(raw.Weather) > 0 {
		desc = raw.Weather[0].Description
	}

	return Current{
		City:          raw.Name,
		Country:       raw.Sys.Country,
		Temperature:   round1(raw.Main.Temp),
		FeelsLike:     round1(raw.Main.FeelsLike),
		Humidity:      raw.Main.Humidity,
		Pressure:      raw.Main.Pressure,
		Description:   desc,
		WindSpeed:     raw.Wind.Speed,
		WindDirection: raw.Wind.Deg,
		VisibilityKM:  float64(raw.Visibility) / 1000,
		Source:        SourceAPI,
		Timestamp:     raw.Dt,
	}
}

func (h *Handler) forecast(ctx context.Context, city string, days int) Forecast {
	if days < 1 || days > maxDays {
		days = defaultDays
	}

	if !h.live() {
		return h.simulatedForecast(city, days)
	}

	q := h.query(city)
	q.Set("cnt", strconv.Itoa(days*8)) // 3h steps

	var raw owmForecast
	if err := h.client.GetJSON(ctx, h.opts.BaseURL+"/forecast", q, &raw); err != nil {
		h.logger.Error("Forecast query failed, using simulated data", "city", city, "error", err.Error())
		return h.simulatedForecast(city, days)
	}

	out := Forecast{City: raw.City.Name, Country: raw.City.Country, Source: SourceAPI}
	for i := 0; i < len(raw.List) && len(out.Days) < days; i += 8 {
		item := raw.List[i]
		desc := ""
		if len(item.Weather) > 0 {
			desc = item.Weather[0].Description
		}
		out.Days = append(out.Days, Day{
			Date:        item.DtTxt,
			TempMin:     round1(item.Main.TempMin),
			TempMax:     round1(item.Main.TempMax),
			Description: desc,
			Humidity:    item.Main.Humidity,
			RainChance:  math.Round(item.Pop * 100),
		})
	}

	return out
}

func (h *Handler) multiCity(ctx context.Context, cities []string) (MultiCity, error) {
	out := MultiCity{
		Cities:    make(map[string]any, len(cities)),
		Total:     len(cities),
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}

	for _, city := range cities {
		if err := ctx.Err(); err != nil {
			return MultiCity{}, err
		}
		out.Cities[city] = h.current(ctx, city)
	}

	return out, nil
}

func (h *Handler) baseTemp(city string) float64 {
	if strings.Contains(strings.ToLower(city), "paulo") {
		return 20
	}
	return 25
}

func (h *Handler) simulatedCurrent(city string) Current {
	temp := h.baseTemp(city) + h.uniform(-5, 10)
	return Current{
		City:          city,
		Country:       "BR",
		Temperature:   round1(temp),
		FeelsLike:     round1(temp + h.uniform(-2, 3)),
		Humidity:      40 + h.rnd.IntN(51),
		Pressure:      1010 + h.rnd.IntN(16),
		Description:   conditions[h.rnd.IntN(len(conditions))],
		WindSpeed:     round1(h.uniform(0, 15)),
		WindDirection: h.rnd.IntN(361),
		VisibilityKM:  round1(h.uniform(5, 20)),
		Source:        SourceSimulated,
		Timestamp:     h.now().Unix(),
	}
}

func (h *Handler) simulatedForecast(city string, days int) Forecast {
	out := Forecast{City: city, Country: "BR", Source: SourceSimulated}
	base := h.baseTemp(city)
	start := h.now()
	for i := 0; i < days; i++ {
		v := h.uniform(-3, 8)
		out.Days = append(out.Days, Day{
			Date:        start.AddDate(0, 0, i).Format(time.DateOnly),
			TempMin:     round1(base + v - 3),
			TempMax:     round1(base + v + 5),
			Description: conditions[h.rnd.IntN(3)],
			Humidity:    40 + h.rnd.IntN(51),
			RainChance:  float64(h.rnd.IntN(81)),
		})
	}
	return out
}

func (h *Handler) uniform(lo, hi float64) float64 {
	return lo + h.rnd.Float64()*(hi-lo)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

var (
	_ core.Handler    = (*Handler)(nil)
	_ core.Shutdowner = (*Handler)(nil)
)
