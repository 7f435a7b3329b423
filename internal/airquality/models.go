// Package airquality provides the canonical air-quality reading model, the
// provider adapter contract, and the ordered-fallback orchestrator.
package airquality

import (
	"errors"
	"fmt"
	"hash/fnv"
	"time"
)

// ErrNoData is returned when every adapter in the fallback chain, including
// the deterministic mock, failed to produce a reading for the requested
// location. Callers map it to a "no data available" response rather than a
// generic failure.
var ErrNoData = errors.New("no air quality data available")

// Parameter identifies a measured pollutant.
type Parameter string

const (
	ParameterPM25 Parameter = "pm25"
	ParameterPM10 Parameter = "pm10"
	ParameterO3   Parameter = "o3"
	ParameterNO2  Parameter = "no2"
	ParameterSO2  Parameter = "so2"
	ParameterCO   Parameter = "co"
)

// Parameters lists the supported pollutants in display order.
var Parameters = []Parameter{
	ParameterPM25,
	ParameterPM10,
	ParameterO3,
	ParameterNO2,
	ParameterSO2,
	ParameterCO,
}

// PollutantReading is one measured concentration. Value is nil when the
// upstream source omits the pollutant.
type PollutantReading struct {
	Parameter Parameter `json:"parameter"`
	Value     *float64  `json:"value"`
	Unit      string    `json:"unit"`
}

// Coordinates is a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Reading is the normalized air-quality snapshot for one location. It is
// constructed fresh on every successful adapter call and never mutated after
// construction; the next successful fetch supersedes it wholesale.
type Reading struct {
	// AQI is the US EPA index derived solely from the PM2.5 concentration.
	// Upstream AQI fields use incompatible scales and are never copied
	// verbatim. Nil when PM2.5 is unavailable.
	AQI *int `json:"aqi"`

	City        string             `json:"city"`
	Country     string             `json:"country"`
	Location    string             `json:"location"`
	Coordinates Coordinates        `json:"coordinates"`
	Pollutants  []PollutantReading `json:"pollutants"`
	Timestamp   time.Time          `json:"timestamp"`

	// Source names the adapter that produced this reading, so consumers can
	// disclose provenance and the cache can label snapshots correctly.
	Source string `json:"source"`
}

// SetPollutant records a concentration, replacing any prior entry for the
// same parameter so a reading holds at most one entry per pollutant.
func (r *Reading) SetPollutant(p Parameter, value *float64, unit string) {
	for i := range r.Pollutants {
		if r.Pollutants[i].Parameter == p {
			r.Pollutants[i].Value = value
			r.Pollutants[i].Unit = unit
			return
		}
	}
	r.Pollutants = append(r.Pollutants, PollutantReading{Parameter: p, Value: value, Unit: unit})
}

// Pollutant returns the recorded concentration for a parameter.
func (r *Reading) Pollutant(p Parameter) (PollutantReading, bool) {
	for _, pr := range r.Pollutants {
		if pr.Parameter == p {
			return pr, true
		}
	}
	return PollutantReading{}, false
}

// PM25 returns the PM2.5 concentration if present.
func (r *Reading) PM25() (float64, bool) {
	pr, ok := r.Pollutant(ParameterPM25)
	if !ok || pr.Value == nil {
		return 0, false
	}
	return *pr.Value, true
}

// HistoricalSample is one hourly historical data point. The series is
// rebuilt wholesale on every successful historical fetch.
type HistoricalSample struct {
	Date time.Time `json:"date"`
	AQI  int       `json:"aqi"`
	PM25 *float64  `json:"pm25"`
	PM10 *float64  `json:"pm10"`
}

// Float64Ptr returns a pointer to v. Adapters use it when populating
// optional pollutant values.
func Float64Ptr(v float64) *float64 {
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// MinuteSeed derives a deterministic seed from a coordinate pair and the
// wall-clock minute bucket. Repeated calls within the same calendar minute
// for the same location yield the same seed; different minutes or locations
// diverge. The simulated providers use it so demo data stays stable between
// UI refreshes.
func MinuteSeed(lat, lon float64, now time.Time) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%.4f|%.4f|%d", lat, lon, now.Unix()/60)
	return h.Sum64()
}
