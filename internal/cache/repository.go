// Package cache implements the offline snapshot cache: a single-slot,
// time-boxed copy of the last successful reading and historical series,
// consulted when live acquisition fails or the consumer is offline.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/aerohealth/aerohealth/internal/airquality"
)

// ErrEmpty is returned when no snapshot has been stored yet.
var ErrEmpty = errors.New("no cached snapshot")

// Snapshot is the persisted cache slot. It is written whole and superseded
// whole; partial updates never happen.
type Snapshot struct {
	AirQuality *airquality.Reading           `json:"airQuality"`
	Historical []airquality.HistoricalSample `json:"historical"`
	Timestamp  time.Time                     `json:"timestamp"`
	Location   string                        `json:"location"`
}

// Repository persists the single cache slot.
type Repository interface {
	// Save overwrites the slot with the given snapshot.
	Save(ctx context.Context, snapshot *Snapshot) error

	// Load returns the stored snapshot, or ErrEmpty if none exists.
	Load(ctx context.Context) (*Snapshot, error)
}

// ConnectivityProbe reports the runtime's network-connectivity signal. The
// cache itself never retries or polls; it only answers reads and writes.
type ConnectivityProbe interface {
	Online() bool
}

// AlwaysOnline is the probe for server deployments with permanent
// connectivity.
type AlwaysOnline struct{}

// Online always reports true.
func (AlwaysOnline) Online() bool { return true }
