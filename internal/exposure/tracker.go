package exposure

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aerohealth/aerohealth/internal/airquality"
	"github.com/aerohealth/aerohealth/internal/aqi"
	"github.com/aerohealth/aerohealth/internal/geo"
	"github.com/aerohealth/aerohealth/internal/location"
)

// CommitInterval is how much continuous tracking time accrues before a
// block of exposure is written to the log.
const CommitInterval = 15 * time.Minute

// ErrNotInServiceArea is reported when the device position is too far from
// every known location.
var ErrNotInServiceArea = errors.New("position is outside the service area")

// Fetcher produces the current air-quality reading for a location query.
// *airquality.Service satisfies this.
type Fetcher interface {
	FetchCurrent(ctx context.Context, locationQuery string) (*airquality.Reading, error)
}

// Update is a tracker state snapshot delivered to listeners after every
// position fix and on stop.
type Update struct {
	IsTracking      bool      `json:"isTracking"`
	CurrentLocation string    `json:"currentLocation,omitempty"`
	CurrentAQI      int       `json:"currentAqi,omitempty"`
	SessionStart    time.Time `json:"sessionStart,omitzero"`
	TodayMinutes    int       `json:"todayMinutes"`
}

// TrackerConfig holds configuration for the exposure tracker.
type TrackerConfig struct {
	// Source provides device positions.
	Source geo.Source

	// Fetcher resolves the current AQI for the nearest known location.
	Fetcher Fetcher

	// Repository persists the exposure log.
	Repository Repository

	// Logger for tracking events.
	Logger zerolog.Logger

	// Now overrides the clock (default: time.Now). Used in tests.
	Now func() time.Time
}

// Tracker follows the device position and accumulates a per-day exposure
// log. Exposure is committed in fixed blocks: every CommitInterval of
// continuous tracking adds that many minutes to the entry for (today,
// nearest location). The entry's risk level is replaced from the latest AQI
// sample, never averaged.
type Tracker struct {
	source geo.Source
	fetch  Fetcher
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time

	mu           sync.Mutex
	tracking     bool
	cancel       context.CancelFunc
	done         chan struct{}
	sessionStart time.Time
	committed    time.Duration
	lastLocation string
	lastAQI      int
	entries      []LogEntry
	loaded       bool
	listeners    map[int]func(Update)
	nextListener int
}

// NewTracker creates a stopped tracker.
func NewTracker(cfg TrackerConfig) *Tracker {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		source:    cfg.Source,
		fetch:     cfg.Fetcher,
		repo:      cfg.Repository,
		logger:    cfg.Logger,
		now:       now,
		listeners: map[int]func(Update){},
	}
}

// Start begins tracking. Starting an already-tracking tracker is a no-op.
// Permission and capability failures from the position source are returned
// synchronously; tracking is not started in that case.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.tracking {
		t.mu.Unlock()
		return nil
	}
	if err := t.loadLocked(ctx); err != nil {
		t.mu.Unlock()
		return err
	}
	t.mu.Unlock()

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	positions, err := t.source.Watch(watchCtx)
	if err != nil {
		cancel()
		return err
	}

	t.mu.Lock()
	t.tracking = true
	t.cancel = cancel
	t.done = make(chan struct{})
	t.sessionStart = t.now()
	t.committed = 0
	t.lastLocation = ""
	t.lastAQI = 0
	done := t.done
	t.mu.Unlock()

	go func() {
		defer close(done)
		for pos := range positions {
			t.handlePosition(watchCtx, pos)
		}
	}()

	t.logger.Info().Msg("exposure tracking started")
	return nil
}

// Stop ends the tracking session. Stopping a stopped tracker is a no-op.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.tracking {
		t.mu.Unlock()
		return
	}
	t.tracking = false
	t.cancel()
	done := t.done
	t.mu.Unlock()

	<-done

	t.logger.Info().Msg("exposure tracking stopped")
	t.notify()
}

// IsTracking reports whether a session is active.
func (t *Tracker) IsTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// AddListener registers a callback invoked synchronously with a state
// snapshot after every position fix and on stop. The returned id removes
// the listener via RemoveListener.
func (t *Tracker) AddListener(fn func(Update)) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextListener
	t.nextListener++
	t.listeners[id] = fn
	return id
}

// RemoveListener unregisters a listener.
func (t *Tracker) RemoveListener(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.listeners, id)
}

// Log returns the exposure log, newest entry first.
func (t *Tracker) Log(ctx context.Context) ([]LogEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.loadLocked(ctx); err != nil {
		return nil, err
	}

	out := make([]LogEntry, len(t.entries))
	for i, e := range t.entries {
		out[len(out)-1-i] = e
	}
	return out, nil
}

// TodayMinutes returns the total minutes logged for the current day across
// all locations.
func (t *Tracker) TodayMinutes(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.loadLocked(ctx); err != nil {
		return 0, err
	}
	return t.todayMinutesLocked(), nil
}

// handlePosition maps one position fix to the nearest known location,
// samples the AQI there, and commits any full exposure blocks the session
// has accrued.
func (t *Tracker) handlePosition(ctx context.Context, pos geo.Position) {
	nearest, distKm, ok := location.Nearest(pos.Latitude, pos.Longitude)
	if !ok {
		t.logger.Warn().
			Float64("lat", pos.Latitude).
			Float64("lon", pos.Longitude).
			Msg("position is outside the service area, skipping fix")
		return
	}

	locKey := nearest.DisplayName()
	aqiValue := t.sampleAQI(ctx, locKey)

	t.mu.Lock()
	t.lastLocation = locKey
	t.lastAQI = aqiValue

	// Commit a block for every full interval elapsed since the last commit.
	elapsed := t.now().Sub(t.sessionStart)
	for elapsed-t.committed >= CommitInterval {
		t.commitLocked(ctx, locKey, aqiValue, int(CommitInterval.Minutes()))
		t.committed += CommitInterval
	}
	t.mu.Unlock()

	t.logger.Debug().
		Str("location", locKey).
		Float64("distance_km", distKm).
		Int("aqi", aqiValue).
		Msg("position fix processed")

	t.notify()
}

// sampleAQI fetches the current AQI for the location, falling back to a
// deterministic minute-stable estimate when the provider chain yields
// nothing usable.
func (t *Tracker) sampleAQI(ctx context.Context, locationKey string) int {
	reading, err := t.fetch.FetchCurrent(ctx, locationKey)
	if err == nil && reading != nil && reading.AQI != nil && *reading.AQI > 0 {
		return *reading.AQI
	}
	if err != nil {
		t.logger.Warn().
			Err(err).
			Str("location", locationKey).
			Msg("AQI fetch failed, using fallback estimate")
	}
	return fallbackAQI(locationKey, t.now())
}

// fallbackAQI derives a stable-within-the-minute AQI estimate in [40, 119]
// from the minute bucket and the location name.
func fallbackAQI(locationKey string, now time.Time) int {
	bucket := now.UnixMilli() / 60_000
	seed := bucket ^ int64(len(locationKey))
	if seed < 0 {
		seed = -seed
	}
	return 40 + int(seed%80)
}

// commitLocked adds minutes to the entry for (today, location), replacing
// its AQI and risk level with the latest sample, then prunes and persists.
// Caller holds t.mu.
func (t *Tracker) commitLocked(ctx context.Context, locationKey string, aqiValue, minutes int) {
	today := t.now().Format(DateLayout)

	found := false
	for i := range t.entries {
		if t.entries[i].Date == today && t.entries[i].Location == locationKey {
			t.entries[i].Duration += minutes
			t.entries[i].AQI = aqiValue
			t.entries[i].RiskLevel = aqi.ExposureRisk(aqiValue)
			found = true
			break
		}
	}
	if !found {
		t.entries = append(t.entries, LogEntry{
			Date:      today,
			AQI:       aqiValue,
			Duration:  minutes,
			Location:  locationKey,
			RiskLevel: aqi.ExposureRisk(aqiValue),
		})
	}

	cutoff := pruneCutoff(t.now())
	kept := t.entries[:0]
	for _, e := range t.entries {
		if e.Date >= cutoff {
			kept = append(kept, e)
		}
	}
	t.entries = kept

	if err := t.repo.SaveLog(ctx, t.entries); err != nil {
		t.logger.Error().Err(err).Msg("failed to persist exposure log")
	}
}

// loadLocked lazily loads the persisted log. Caller holds t.mu.
func (t *Tracker) loadLocked(ctx context.Context) error {
	if t.loaded {
		return nil
	}
	entries, err := t.repo.LoadLog(ctx)
	if err != nil {
		return err
	}
	t.entries = entries
	t.loaded = true
	return nil
}

func (t *Tracker) todayMinutesLocked() int {
	today := t.now().Format(DateLayout)
	total := 0
	for _, e := range t.entries {
		if e.Date == today {
			total += e.Duration
		}
	}
	return total
}

// notify delivers a state snapshot to every listener.
func (t *Tracker) notify() {
	t.mu.Lock()
	update := Update{
		IsTracking:      t.tracking,
		CurrentLocation: t.lastLocation,
		CurrentAQI:      t.lastAQI,
		TodayMinutes:    t.todayMinutesLocked(),
	}
	if t.tracking {
		update.SessionStart = t.sessionStart
	}
	fns := make([]func(Update), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(update)
	}
}
