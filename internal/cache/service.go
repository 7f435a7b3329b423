package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/aerohealth/aerohealth/internal/airquality"
)

// DefaultTTL is how long a snapshot counts as fresh.
const DefaultTTL = 30 * time.Minute

// MetricsRecorder receives cache hit/miss counts. Optional.
type MetricsRecorder interface {
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// ServiceConfig holds configuration for the cache service.
type ServiceConfig struct {
	// Repository persists the slot.
	Repository Repository

	// Probe reports connectivity (default: AlwaysOnline).
	Probe ConnectivityProbe

	// Metrics counts hits and misses when set.
	Metrics MetricsRecorder

	// Logger for cache operations.
	Logger zerolog.Logger

	// TTL is the freshness window (default: 30 minutes).
	TTL time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service enforces the cache contract over the repository: a read hits only
// when the slot matches the requested location exactly and is younger than
// the TTL. Anything else is a miss, which is a normal outcome.
type Service struct {
	repo    Repository
	probe   ConnectivityProbe
	metrics MetricsRecorder
	logger  zerolog.Logger
	ttl     time.Duration
	now     func() time.Time
}

// NewService creates a new cache service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	probe := cfg.Probe
	if probe == nil {
		probe = AlwaysOnline{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    cfg.Repository,
		probe:   probe,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		ttl:     ttl,
		now:     now,
	}
}

// Write persists a snapshot for the location, fully replacing the previous
// slot regardless of which location it held.
func (s *Service) Write(ctx context.Context, reading *airquality.Reading, historical []airquality.HistoricalSample, locationKey string) error {
	snapshot := &Snapshot{
		AirQuality: reading,
		Historical: historical,
		Timestamp:  s.now(),
		Location:   locationKey,
	}

	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.logger.Error().Err(err).Str("location", locationKey).Msg("failed to write cache snapshot")
		return err
	}

	s.logger.Debug().
		Str("location", locationKey).
		Str("source", reading.Source).
		Int("historical_samples", len(historical)).
		Msg("cache snapshot written")
	return nil
}

// Read returns the snapshot if it matches the location exactly and is still
// fresh; ok=false otherwise.
func (s *Service) Read(ctx context.Context, locationKey string) (*Snapshot, bool) {
	snapshot, err := s.repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrEmpty) {
			s.logger.Warn().Err(err).Msg("failed to load cache snapshot")
		}
		return nil, s.miss()
	}

	if snapshot.Location != locationKey {
		return nil, s.miss()
	}
	if s.now().Sub(snapshot.Timestamp) >= s.ttl {
		return nil, s.miss()
	}
	if s.metrics != nil {
		s.metrics.RecordCacheHit("snapshot-cache", "read")
	}
	return snapshot, true
}

func (s *Service) miss() bool {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss("snapshot-cache", "read")
	}
	return false
}

// Online reports the connectivity probe's signal.
func (s *Service) Online() bool {
	return s.probe.Online()
}

// Status describes the current slot for the ops endpoint.
type Status struct {
	HasData   bool      `json:"hasData"`
	Location  string    `json:"location,omitempty"`
	Source    string    `json:"source,omitempty"`
	WrittenAt time.Time `json:"writtenAt,omitempty"`
	Fresh     bool      `json:"fresh"`
	Online    bool      `json:"online"`
}

// Status reports the slot state without the freshness/location gating that
// Read applies.
func (s *Service) Status(ctx context.Context) Status {
	status := Status{Online: s.probe.Online()}

	snapshot, err := s.repo.Load(ctx)
	if err != nil {
		return status
	}

	status.HasData = true
	status.Location = snapshot.Location
	status.WrittenAt = snapshot.Timestamp
	status.Fresh = s.now().Sub(snapshot.Timestamp) < s.ttl
	if snapshot.AirQuality != nil {
		status.Source = snapshot.AirQuality.Source
	}
	return status
}
