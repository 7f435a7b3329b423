// Package mockdata is the deterministic offline fallback, the last adapter
// in the chain. It produces a stable reading for any registry location so
// consumers never see a hard error for current conditions, even fully
// offline.
package mockdata

import (
	"context"
	"time"

	"github.com/aerohealth/aerohealth/internal/airquality"
	"github.com/aerohealth/aerohealth/internal/aqi"
	"github.com/aerohealth/aerohealth/internal/location"
)

// ProviderName identifies this provider in Reading.Source.
const ProviderName = "AeroHealth MockData"

// Client generates deterministic offline readings.
type Client struct {
	now func() time.Time
}

// NewClient creates the mock adapter.
func NewClient() *Client {
	return &Client{now: time.Now}
}

// NewClientAt creates the adapter with a fixed clock for tests.
func NewClientAt(now func() time.Time) *Client {
	return &Client{now: now}
}

// Name returns the provider tag.
func (c *Client) Name() string {
	return ProviderName
}

// FetchCurrent produces a deterministic reading seeded from the registry
// coordinates and the current minute bucket: repeated calls within one
// calendar minute return identical values, while different minutes or
// locations diverge. The only way it declines is a registry miss.
func (c *Client) FetchCurrent(_ context.Context, locationQuery string) airquality.Result {
	loc, ok := location.Find(locationQuery)
	if !ok {
		return airquality.NotServed()
	}

	now := c.now().UTC()
	seed := airquality.MinuteSeed(loc.Lat, loc.Lon, now)

	// PM2.5 in [5, 54] keeps the mock inside the Good/Moderate bands the
	// dashboard expects for demo data.
	pm25 := 5 + float64(seed%50)
	pm10 := pm25 + float64((seed>>8)%30)
	o3 := 15 + float64((seed>>16)%50)
	no2 := 4 + float64((seed>>24)%26)

	reading := &airquality.Reading{
		City:        loc.Name,
		Country:     "Ghana",
		Location:    loc.DisplayName(),
		Coordinates: airquality.Coordinates{Lat: loc.Lat, Lon: loc.Lon},
		Timestamp:   now,
		Source:      ProviderName,
	}

	reading.SetPollutant(airquality.ParameterPM25, airquality.Float64Ptr(pm25), "µg/m³")
	reading.SetPollutant(airquality.ParameterPM10, airquality.Float64Ptr(pm10), "µg/m³")
	reading.SetPollutant(airquality.ParameterO3, airquality.Float64Ptr(o3), "µg/m³")
	reading.SetPollutant(airquality.ParameterNO2, airquality.Float64Ptr(no2), "µg/m³")

	reading.AQI = airquality.IntPtr(aqi.FromPM25(pm25))

	return airquality.Found(reading)
}
