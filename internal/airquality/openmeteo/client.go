// Package openmeteo adapts the Open-Meteo air-quality API, a gridded
// reanalysis/forecast model. It is the second provider in the fallback chain
// and the sole source for hourly historical series.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aerohealth/aerohealth/internal/airquality"
	"github.com/aerohealth/aerohealth/internal/aqi"
	"github.com/aerohealth/aerohealth/internal/location"
	"github.com/aerohealth/aerohealth/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the Open-Meteo air-quality API.
	DefaultBaseURL = "https://air-quality-api.open-meteo.com"

	// ProviderName identifies this provider in Reading.Source.
	ProviderName = "Open-Meteo"

	// hourLayout is the timestamp format Open-Meteo uses without seconds or
	// zone (interpreted as UTC since we request timezone=UTC).
	hourLayout = "2006-01-02T15:04"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a resilient client is
	// created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 8s).
	Timeout time.Duration
}

// Client is the Open-Meteo adapter.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new Open-Meteo adapter.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:    "open-meteo",
			Timeout: cfg.Timeout,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the provider tag.
func (c *Client) Name() string {
	return ProviderName
}

// API response types (from the Open-Meteo air-quality endpoint).

type currentResponse struct {
	Current *currentBlock `json:"current"`
}

type currentBlock struct {
	Time            string   `json:"time"`
	PM25            *float64 `json:"pm2_5"`
	PM10            *float64 `json:"pm10"`
	Ozone           *float64 `json:"ozone"`
	NitrogenDioxide *float64 `json:"nitrogen_dioxide"`
	SulphurDioxide  *float64 `json:"sulphur_dioxide"`
	CarbonMonoxide  *float64 `json:"carbon_monoxide"`
}

type historyResponse struct {
	Hourly *hourlyBlock `json:"hourly"`
}

type hourlyBlock struct {
	Time []string   `json:"time"`
	PM25 []*float64 `json:"pm2_5"`
	PM10 []*float64 `json:"pm10"`
}

// FetchCurrent returns the model's current pollutant concentrations for the
// queried location.
func (c *Client) FetchCurrent(ctx context.Context, locationQuery string) airquality.Result {
	loc, ok := location.Find(locationQuery)
	if !ok {
		return airquality.NotServed()
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", loc.Lat))
	q.Set("longitude", fmt.Sprintf("%.4f", loc.Lon))
	q.Set("current", "pm2_5,pm10,ozone,nitrogen_dioxide,sulphur_dioxide,carbon_monoxide")
	q.Set("timezone", "UTC")

	var result currentResponse
	if err := c.get(ctx, "/v1/air-quality?"+q.Encode(), &result); err != nil {
		return airquality.TransientError(err)
	}

	if result.Current == nil {
		return airquality.TransientError(fmt.Errorf("response missing current block for %s", loc.DisplayName()))
	}

	return airquality.Found(c.toReading(loc, result.Current))
}

// FetchHourlyHistory returns hourly PM2.5/PM10 samples for the inclusive
// range [today-days, today], oldest first, with AQI derived per sample.
func (c *Client) FetchHourlyHistory(ctx context.Context, locationQuery string, days int) ([]airquality.HistoricalSample, error) {
	loc, ok := location.Find(locationQuery)
	if !ok {
		return nil, fmt.Errorf("location not in registry: %q", locationQuery)
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", loc.Lat))
	q.Set("longitude", fmt.Sprintf("%.4f", loc.Lon))
	q.Set("hourly", "pm2_5,pm10")
	q.Set("past_days", strconv.Itoa(days))
	q.Set("forecast_days", "1")
	q.Set("timezone", "UTC")

	var result historyResponse
	if err := c.get(ctx, "/v1/air-quality?"+q.Encode(), &result); err != nil {
		return nil, err
	}

	if result.Hourly == nil || len(result.Hourly.Time) == 0 {
		return nil, fmt.Errorf("response missing hourly series for %s", loc.DisplayName())
	}

	hourly := result.Hourly
	now := time.Now().UTC()
	samples := make([]airquality.HistoricalSample, 0, len(hourly.Time))

	for i, ts := range hourly.Time {
		date, err := time.Parse(hourLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse hourly timestamp %q: %w", ts, err)
		}
		if date.After(now) {
			break // forecast hours beyond the current time are not history
		}

		sample := airquality.HistoricalSample{Date: date}
		if i < len(hourly.PM25) {
			sample.PM25 = hourly.PM25[i]
		}
		if i < len(hourly.PM10) {
			sample.PM10 = hourly.PM10[i]
		}
		if sample.PM25 != nil {
			sample.AQI = aqi.FromPM25(*sample.PM25)
		}
		samples = append(samples, sample)
	}

	return samples, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch air quality: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from air-quality endpoint", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode air-quality response: %w", err)
	}
	return nil
}

// toReading converts the current block to the canonical reading.
func (c *Client) toReading(loc location.Location, cur *currentBlock) *airquality.Reading {
	timestamp := time.Now().UTC()
	if ts, err := time.Parse(hourLayout, cur.Time); err == nil {
		timestamp = ts
	}

	reading := &airquality.Reading{
		City:        loc.Name,
		Country:     "Ghana",
		Location:    loc.DisplayName(),
		Coordinates: airquality.Coordinates{Lat: loc.Lat, Lon: loc.Lon},
		Timestamp:   timestamp,
		Source:      ProviderName,
	}

	reading.SetPollutant(airquality.ParameterPM25, cur.PM25, "µg/m³")
	reading.SetPollutant(airquality.ParameterPM10, cur.PM10, "µg/m³")
	reading.SetPollutant(airquality.ParameterO3, cur.Ozone, "µg/m³")
	reading.SetPollutant(airquality.ParameterNO2, cur.NitrogenDioxide, "µg/m³")
	reading.SetPollutant(airquality.ParameterSO2, cur.SulphurDioxide, "µg/m³")
	reading.SetPollutant(airquality.ParameterCO, cur.CarbonMonoxide, "µg/m³")

	if pm25, ok := reading.PM25(); ok {
		reading.AQI = airquality.IntPtr(aqi.FromPM25(pm25))
	}

	return reading
}
