package airquality

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultAdapterTimeout bounds each adapter attempt so a partitioned
	// provider cannot stall the whole fallback chain.
	DefaultAdapterTimeout = 8 * time.Second

	// DefaultHistoryDays is the historical range when the caller does not
	// specify one.
	DefaultHistoryDays = 7

	// MaxHistoryDays caps the historical range.
	MaxHistoryDays = 30
)

// ServiceConfig holds configuration for the acquisition service.
type ServiceConfig struct {
	// Adapters in strict priority order, most authoritative first. The
	// deterministic mock belongs last.
	Adapters []Adapter

	// History is the provider used for hourly historical series.
	History HistoryProvider

	// Logger for orchestration events.
	Logger zerolog.Logger

	// AdapterTimeout bounds each adapter attempt (default: 8s).
	AdapterTimeout time.Duration
}

// Service orchestrates the provider fallback chain. Adapters are tried
// strictly in priority order and the first reading wins; lower-priority
// providers are never called once a result is found.
type Service struct {
	adapters       []Adapter
	history        HistoryProvider
	logger         zerolog.Logger
	adapterTimeout time.Duration
}

// NewService creates a new acquisition service.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.AdapterTimeout
	if timeout == 0 {
		timeout = DefaultAdapterTimeout
	}
	return &Service{
		adapters:       cfg.Adapters,
		history:        cfg.History,
		logger:         cfg.Logger,
		adapterTimeout: timeout,
	}
}

// FetchCurrent tries each adapter in priority order and returns the first
// reading. Transient adapter failures are logged and absorbed; the chain
// only fails with ErrNoData when every adapter, the mock included, declined
// the location.
func (s *Service) FetchCurrent(ctx context.Context, locationQuery string) (*Reading, error) {
	for _, adapter := range s.adapters {
		result := s.tryAdapter(ctx, adapter, locationQuery)

		switch result.Status {
		case StatusFound:
			s.logger.Debug().
				Str("provider", adapter.Name()).
				Str("location", locationQuery).
				Msg("adapter produced reading")
			return result.Reading, nil

		case StatusNotServed:
			s.logger.Debug().
				Str("provider", adapter.Name()).
				Str("location", locationQuery).
				Msg("adapter does not serve location")

		case StatusTransientError:
			s.logger.Warn().
				Err(result.Err).
				Str("provider", adapter.Name()).
				Str("location", locationQuery).
				Msg("adapter failed, falling through")
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fallback chain aborted: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNoData, locationQuery)
}

// tryAdapter runs one adapter under its own deadline, converting a panic
// into a transient result so a misbehaving adapter cannot take down the
// chain.
func (s *Service) tryAdapter(ctx context.Context, adapter Adapter, locationQuery string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = TransientError(fmt.Errorf("adapter %s panicked: %v", adapter.Name(), r))
		}
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, s.adapterTimeout)
	defer cancel()

	return adapter.FetchCurrent(attemptCtx, locationQuery)
}

// FetchHistory returns up to days*24 hourly samples for the location. Any
// failure yields an empty series rather than an error: a missing chart is a
// normal state for consumers, not an application fault.
func (s *Service) FetchHistory(ctx context.Context, locationQuery string, days int) []HistoricalSample {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	if days > MaxHistoryDays {
		days = MaxHistoryDays
	}

	if s.history == nil {
		return []HistoricalSample{}
	}

	samples, err := s.history.FetchHourlyHistory(ctx, locationQuery, days)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("location", locationQuery).
			Int("days", days).
			Msg("historical fetch failed, returning empty series")
		return []HistoricalSample{}
	}

	if max := days * 24; len(samples) > max {
		samples = samples[len(samples)-max:]
	}
	return samples
}
