// Package httpx provides the JSON-over-HTTP client used by agents that call
// public REST APIs. Calls go through a circuit breaker so a failing upstream
// is skipped quickly and agents can fall back to simulated data.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hupe1980/mcpagent/logging"
	"github.com/sony/gobreaker/v2"
)

// Default circuit breaker and transport settings.
const (
	defaultMaxFailures uint32        = 3
	defaultOpenTimeout time.Duration = 30 * time.Second
	defaultInterval    time.Duration = 60 * time.Second
	defaultTimeout     time.Duration = 10 * time.Second
	maxBodyBytes                     = 4 << 20
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit open")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL  string
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// Options configures a Client.
type Options struct {
	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
	// Timeout bounds one request.
	Timeout time.Duration
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a probe is allowed.
	OpenTimeout time.Duration
	// Logger receives breaker state changes.
	Logger logging.Logger
}

// Client performs GET requests returning JSON.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  logging.Logger
}

// New creates a Client whose breaker is named name.
func New(name string, optFns ...func(o *Options)) *Client {
	opts := Options{
		Timeout:     defaultTimeout,
		MaxFailures: defaultMaxFailures,
		OpenTimeout: defaultOpenTimeout,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	logger := opts.Logger
	maxFailures := opts.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "http:" + name,
		MaxRequests: 1,
		Interval:    defaultInterval,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about upstream health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Client{http: httpClient, breaker: cb, logger: logger}
}

// GetJSON issues GET base?query and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, base string, query url.Values, out any) error {
	target := base
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, target)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %s", ErrCircuitOpen, err.Error())
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", base, err)
	}

	return nil
}

// State returns the breaker state for monitoring.
func (c *Client) State() gobreaker.State { return c.breaker.State() }

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() { c.http.CloseIdleConnections() }

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{URL: redact(req.URL), Code: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// redact drops the query string, which may carry API keys.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}
