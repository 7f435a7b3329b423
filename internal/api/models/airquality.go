package models

import "github.com/aerohealth/aerohealth/internal/airquality"

// AirQualityResponse is the combined current + historical payload.
type AirQualityResponse struct {
	// Current is the live reading for the requested location.
	Current *airquality.Reading `json:"current"`

	// Historical holds up to days*24 hourly samples, oldest first. Empty when
	// no historical data could be fetched.
	Historical []airquality.HistoricalSample `json:"historical"`

	// Cached is true when the payload was served from the offline snapshot
	// cache rather than a live provider.
	Cached bool `json:"cached"`
}

// HistoricalResponse is the historical-only payload.
type HistoricalResponse struct {
	Location   string                        `json:"location"`
	Days       int                           `json:"days"`
	Historical []airquality.HistoricalSample `json:"historical"`
}
