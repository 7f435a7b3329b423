package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aerohealth/aerohealth/internal/airquality"
	"github.com/aerohealth/aerohealth/internal/cache"
)

// AirQualityFetcher is the slice of the fallback chain the refresh job
// needs. *airquality.Service satisfies this.
type AirQualityFetcher interface {
	FetchCurrent(ctx context.Context, locationQuery string) (*airquality.Reading, error)
	FetchHistory(ctx context.Context, locationQuery string, days int) []airquality.HistoricalSample
}

// RefreshJob warms the snapshot cache by fetching current and historical
// data for each configured city through the fallback chain.
type RefreshJob struct {
	config  RefreshConfig
	logger  zerolog.Logger
	fetcher AirQualityFetcher
	cache   *cache.Service
	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns        int64
	SuccessfulCities int64
	FailedCities     int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config  RefreshConfig
	Logger  zerolog.Logger
	Fetcher AirQualityFetcher
	Cache   *cache.Service
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:  cfg.Config.withDefaults(),
		logger:  cfg.Logger,
		fetcher: cfg.Fetcher,
		cache:   cfg.Cache,
		metrics: &RefreshMetrics{},
	}
}

// RefreshResult contains the result of one refresh run.
type RefreshResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalCities int
	Successful  int
	Failed      int
	Errors      []RefreshError
}

// RefreshError represents a failed city refresh.
type RefreshError struct {
	City  string
	Error string
}

// Run executes the refresh job for all configured cities.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	return j.RunFor(ctx, j.config.Cities, j.config.Days)
}

// RunFor executes the refresh job for an explicit city list.
func (j *RefreshJob) RunFor(ctx context.Context, cities []string, days int) *RefreshResult {
	startTime := time.Now()
	if len(cities) == 0 {
		cities = j.config.Cities
	}
	if days <= 0 {
		days = j.config.Days
	}

	result := &RefreshResult{
		StartTime:   startTime,
		TotalCities: len(cities),
	}

	j.logger.Info().
		Int("cities", len(cities)).
		Int("days", days).
		Int("concurrency", j.config.Concurrency).
		Msg("starting cache refresh job")

	citiesChan := make(chan string, len(cities))
	resultsChan := make(chan cityResult, len(cities))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, days, citiesChan, resultsChan)
		}()
	}

	for _, city := range cities {
		citiesChan <- city
	}
	close(citiesChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for cr := range resultsChan {
		if cr.err == nil {
			result.Successful++
		} else {
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{
				City:  cr.city,
				Error: cr.err.Error(),
			})
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("cache refresh job completed")

	return result
}

type cityResult struct {
	city string
	err  error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, days int, cities <-chan string, results chan<- cityResult) {
	for city := range cities {
		select {
		case <-ctx.Done():
			results <- cityResult{city: city, err: ctx.Err()}
		default:
			results <- cityResult{city: city, err: j.refreshCity(ctx, city, days)}
		}
	}
}

// refreshCity fetches and caches one city. Historical failures are absorbed
// by the chain (empty series); only a current-reading failure fails the
// city.
func (j *RefreshJob) refreshCity(ctx context.Context, city string, days int) error {
	cityCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	reading, err := j.fetcher.FetchCurrent(cityCtx, city)
	if err != nil {
		return err
	}
	historical := j.fetcher.FetchHistory(cityCtx, city, days)

	if j.cache != nil {
		if err := j.cache.Write(cityCtx, reading, historical, city); err != nil {
			return err
		}
	}

	j.logger.Debug().
		Str("city", city).
		Str("source", reading.Source).
		Int("historical_samples", len(historical)).
		Msg("city refreshed")
	return nil
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulCities += int64(result.Successful)
	j.metrics.FailedCities += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:        j.metrics.TotalRuns,
		SuccessfulCities: j.metrics.SuccessfulCities,
		FailedCities:     j.metrics.FailedCities,
		LastRunAt:        j.metrics.LastRunAt,
		LastRunDuration:  j.metrics.LastRunDuration,
		TotalDuration:    j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"successful_cities": m.SuccessfulCities,
		"failed_cities":     m.FailedCities,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
