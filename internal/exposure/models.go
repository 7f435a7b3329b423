// Package exposure implements the live exposure tracker: a stateful watcher
// that follows the device position, samples air quality for the nearest
// known location, and accumulates a persisted per-day exposure log.
package exposure

import (
	"context"
	"time"
)

// DateLayout is the calendar-day key format for log entries.
const DateLayout = "2006-01-02"

// LogEntry is the accumulated exposure for one (day, location) pair.
// Duration grows additively as tracking continues through the day; RiskLevel
// is replaced from the most recent AQI sample, never accumulated.
type LogEntry struct {
	Date      string `json:"date"` // YYYY-MM-DD
	AQI       int    `json:"aqi"`
	Duration  int    `json:"duration"` // minutes
	Location  string `json:"location"`
	RiskLevel int    `json:"riskLevel"` // 1..5
}

// Repository persists the exposure log. The tracker is the only writer, so
// the log is loaded and stored whole.
type Repository interface {
	// LoadLog returns all stored entries, oldest first.
	LoadLog(ctx context.Context) ([]LogEntry, error)

	// SaveLog replaces the stored log.
	SaveLog(ctx context.Context, entries []LogEntry) error
}

// RetentionDays is how long log entries are kept; older entries are pruned
// on every write.
const RetentionDays = 30

// pruneCutoff returns the oldest date (inclusive) retained at the given time.
func pruneCutoff(now time.Time) string {
	return now.AddDate(0, 0, -RetentionDays).Format(DateLayout)
}
