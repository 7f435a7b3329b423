// Package resilience wraps outbound HTTP calls to upstream air-quality and
// geocoding providers with circuit breakers, per-request timeouts, and
// exponential-backoff retries.
package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned when the provider's circuit breaker is open
	// and the call was not attempted.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// ClientConfig holds configuration for a resilient provider client.
type ClientConfig struct {
	// Name identifies the upstream provider for breaker state and health
	// reporting.
	Name string

	// Timeout bounds each individual HTTP attempt (default: 8s).
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the first call
	// (default: 2).
	MaxRetries uint64

	// InitialInterval is the first retry backoff delay (default: 200ms).
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff delay (default: 3s).
	MaxInterval time.Duration

	// BreakerTimeout is how long the breaker stays open before probing
	// half-open (default: 60s).
	BreakerTimeout time.Duration

	// ReadyToTrip overrides the default trip condition (5+ requests with a
	// failure rate of at least 50%).
	ReadyToTrip func(counts gobreaker.Counts) bool
}

func (cfg *ClientConfig) applyDefaults() {
	if cfg.Timeout == 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 3 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		}
	}
}

// Client is an HTTP client guarding one upstream provider.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     ClientConfig
}

// NewClient creates a resilient client for one provider.
func NewClient(cfg ClientConfig) *Client {
	cfg.applyDefaults()

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: cfg.ReadyToTrip,
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		config:     cfg,
	}
}

// ServerError reports an HTTP 5xx response from the upstream provider.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Do executes the request through the circuit breaker, retrying transient
// failures (network errors and 5xx responses) with exponential backoff.
// 4xx responses are returned to the caller without retrying. If retries are
// exhausted on a 5xx, the last response is returned so callers can inspect
// the status.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var lastResp *http.Response

	attempt := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			r, doErr := c.httpClient.Do(req.Clone(ctx))
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 {
				// Count 5xx as failures so the breaker trips on a
				// misbehaving provider.
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				lastResp = resp
			}
			return err
		}

		lastResp = resp
		return nil
	}

	if err := backoff.Retry(attempt, policy); err != nil {
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}
	return lastResp, nil
}

// Name returns the provider name this client guards.
func (c *Client) Name() string {
	return c.config.Name
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// BreakerCounts returns the circuit breaker's request counters.
func (c *Client) BreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}

