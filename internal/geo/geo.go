// Package geo abstracts the device position source consumed by the live
// exposure tracker.
package geo

import (
	"context"
	"errors"
	"time"
)

// Position is one device position fix.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Accuracy is the fix radius in meters.
	Accuracy float64 `json:"accuracy"`
}

// Position source errors. Permission denial and missing capability are
// fatal for tracking; a timeout is retried once with an extended budget
// before being treated as fatal.
var (
	ErrPermissionDenied = errors.New("geolocation permission denied")
	ErrUnavailable      = errors.New("geolocation is not available")
	ErrTimeout          = errors.New("geolocation request timed out")
)

const (
	// DefaultTimeout is the budget for the first one-shot position read.
	DefaultTimeout = 10 * time.Second

	// ExtendedTimeout is the budget for the single retry after a timeout.
	ExtendedTimeout = 30 * time.Second
)

// Source provides device positions.
type Source interface {
	// Watch starts a continuous position stream. The returned channel is
	// closed when ctx is cancelled or the stream ends. Permission and
	// capability failures are reported synchronously.
	Watch(ctx context.Context) (<-chan Position, error)

	// Current returns a single position fix within the given budget.
	Current(ctx context.Context, timeout time.Duration) (Position, error)
}

// CurrentPosition reads one position fix, retrying exactly once with the
// extended budget when the first attempt times out.
func CurrentPosition(ctx context.Context, source Source) (Position, error) {
	pos, err := source.Current(ctx, DefaultTimeout)
	if err == nil {
		return pos, nil
	}
	if !errors.Is(err, ErrTimeout) {
		return Position{}, err
	}
	return source.Current(ctx, ExtendedTimeout)
}

// StaticSource emits a fixed position, useful for demos and tests.
type StaticSource struct {
	Position Position

	// Interval between emitted positions on the watch stream
	// (default: 1 minute).
	Interval time.Duration
}

// Watch emits the fixed position on every interval tick.
func (s *StaticSource) Watch(ctx context.Context) (<-chan Position, error) {
	interval := s.Interval
	if interval == 0 {
		interval = time.Minute
	}

	out := make(chan Position)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Emit the first fix immediately.
		select {
		case out <- s.Position:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-ticker.C:
				select {
				case out <- s.Position:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Current returns the fixed position immediately.
func (s *StaticSource) Current(_ context.Context, _ time.Duration) (Position, error) {
	return s.Position, nil
}
