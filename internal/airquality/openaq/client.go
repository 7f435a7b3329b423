// Package openaq adapts the OpenAQ community ground-station network to the
// canonical reading format. It is the most authoritative provider in the
// fallback chain.
package openaq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aerohealth/aerohealth/internal/airquality"
	"github.com/aerohealth/aerohealth/internal/aqi"
	"github.com/aerohealth/aerohealth/internal/location"
	"github.com/aerohealth/aerohealth/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the OpenAQ API.
	DefaultBaseURL = "https://api.openaq.org"

	// ProviderName identifies this provider in Reading.Source.
	ProviderName = "OpenAQ"

	// searchRadiusMeters is how far from the registry coordinates a ground
	// station may be and still represent the location.
	searchRadiusMeters = 25000
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenAQ client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// APIKey is sent as X-API-Key when set.
	APIKey string

	// HTTPClient is the HTTP client to use. If nil, a resilient client is
	// created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 8s).
	Timeout time.Duration
}

// Client is the OpenAQ adapter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
}

// NewClient creates a new OpenAQ adapter.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:    "openaq",
			Timeout: cfg.Timeout,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// Name returns the provider tag.
func (c *Client) Name() string {
	return ProviderName
}

// API response types (from the OpenAQ v2 latest endpoint).

type latestResponse struct {
	Results []latestResult `json:"results"`
}

type latestResult struct {
	Location     string `json:"location"`
	City         string `json:"city"`
	Country      string `json:"country"`
	Coordinates  coords `json:"coordinates"`
	Measurements []struct {
		Parameter   string  `json:"parameter"`
		Value       float64 `json:"value"`
		Unit        string  `json:"unit"`
		LastUpdated string  `json:"lastUpdated"`
	} `json:"measurements"`
}

type coords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FetchCurrent returns the latest ground-station measurements nearest the
// registry coordinates for the queried location.
func (c *Client) FetchCurrent(ctx context.Context, locationQuery string) airquality.Result {
	loc, ok := location.Find(locationQuery)
	if !ok {
		return airquality.NotServed()
	}

	q := url.Values{}
	q.Set("coordinates", fmt.Sprintf("%.4f,%.4f", loc.Lat, loc.Lon))
	q.Set("radius", fmt.Sprintf("%d", searchRadiusMeters))
	q.Set("order_by", "distance")
	q.Set("limit", "1")

	reqURL := c.baseURL + "/v2/latest?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return airquality.TransientError(fmt.Errorf("create request: %w", err))
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return airquality.TransientError(fmt.Errorf("fetch latest: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return airquality.TransientError(fmt.Errorf("unexpected status %d from latest endpoint", resp.StatusCode))
	}

	var result latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return airquality.TransientError(fmt.Errorf("decode latest response: %w", err))
	}

	if len(result.Results) == 0 {
		return airquality.TransientError(fmt.Errorf("no stations within %dm of %s", searchRadiusMeters, loc.DisplayName()))
	}

	return airquality.Found(c.toReading(loc, &result.Results[0]))
}

// toReading converts a station result to the canonical reading.
func (c *Client) toReading(loc location.Location, res *latestResult) *airquality.Reading {
	reading := &airquality.Reading{
		City:        loc.Name,
		Country:     "Ghana",
		Location:    loc.DisplayName(),
		Coordinates: airquality.Coordinates{Lat: loc.Lat, Lon: loc.Lon},
		Timestamp:   time.Now().UTC(),
		Source:      ProviderName,
	}

	for _, m := range res.Measurements {
		p, ok := toParameter(m.Parameter)
		if !ok {
			continue // unsupported pollutant
		}
		unit := m.Unit
		if unit == "" {
			unit = "µg/m³"
		}
		reading.SetPollutant(p, airquality.Float64Ptr(m.Value), unit)
	}

	if pm25, ok := reading.PM25(); ok {
		reading.AQI = airquality.IntPtr(aqi.FromPM25(pm25))
	}

	return reading
}

// toParameter maps an OpenAQ parameter code to the canonical vocabulary.
func toParameter(code string) (airquality.Parameter, bool) {
	switch strings.ToLower(code) {
	case "pm25", "pm2_5":
		return airquality.ParameterPM25, true
	case "pm10":
		return airquality.ParameterPM10, true
	case "o3":
		return airquality.ParameterO3, true
	case "no2":
		return airquality.ParameterNO2, true
	case "so2":
		return airquality.ParameterSO2, true
	case "co":
		return airquality.ParameterCO, true
	default:
		return "", false
	}
}
