package airquality

import "context"

// Status classifies an adapter attempt.
type Status int

const (
	// StatusFound means the adapter produced a normalized reading.
	StatusFound Status = iota

	// StatusNotServed means the adapter cannot serve this location (it is
	// absent from the location registry). This is an expected outcome, not
	// a failure.
	StatusNotServed

	// StatusTransientError means the adapter hit a network or upstream
	// failure. The orchestrator logs it and moves to the next adapter.
	StatusTransientError
)

// Result is the outcome of one adapter attempt. Making the three outcomes
// explicit keeps the orchestrator's fallback decision readable instead of
// hiding it behind nil checks.
type Result struct {
	Status  Status
	Reading *Reading
	Err     error
}

// Found wraps a successful reading.
func Found(r *Reading) Result {
	return Result{Status: StatusFound, Reading: r}
}

// NotServed signals the adapter has no coverage for the location.
func NotServed() Result {
	return Result{Status: StatusNotServed}
}

// TransientError signals an upstream failure the chain should absorb.
func TransientError(err error) Result {
	return Result{Status: StatusTransientError, Err: err}
}

// Adapter translates one upstream data source into the canonical reading
// format. Adapters contain their expected failure modes: an upstream HTTP
// error or malformed payload becomes a TransientError result, never a panic
// or a propagated error.
type Adapter interface {
	// Name returns the human-readable provider tag recorded in
	// Reading.Source.
	Name() string

	// FetchCurrent resolves the location query against the shared registry
	// and fetches the current reading.
	FetchCurrent(ctx context.Context, locationQuery string) Result
}

// HistoryProvider fetches an hourly pollutant time-series. Only the
// gridded-model provider implements it.
type HistoryProvider interface {
	// FetchHourlyHistory returns up to days*24 hourly samples for the
	// inclusive range [today-days, today], oldest first.
	FetchHourlyHistory(ctx context.Context, locationQuery string, days int) ([]HistoricalSample, error)
}
