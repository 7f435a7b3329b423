// Package geocode resolves free-form place names to coordinates through the
// OpenWeatherMap geocoding API, falling back to the static registry when the
// upstream misses or fails.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aerohealth/aerohealth/internal/location"
	"github.com/aerohealth/aerohealth/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the OpenWeatherMap geocoding API.
	DefaultBaseURL = "https://api.openweathermap.org"

	// countryCode limits direct lookups to Ghana.
	countryCode = "GH"
)

// ErrNotFound is returned when neither the upstream nor the registry can
// resolve a query.
var ErrNotFound = errors.New("place not found")

// Place is a resolved place.
type Place struct {
	Name    string  `json:"name"`
	Region  string  `json:"region,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the geocoding client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// APIKey is the OpenWeatherMap API key. Without a key the client resolves
	// from the registry only.
	APIKey string

	// HTTPClient is the HTTP client to use. If nil, a resilient client is
	// created.
	HTTPClient HTTPDoer

	// Logger for resolution events.
	Logger zerolog.Logger

	// Timeout for individual API requests (default: 8s).
	Timeout time.Duration
}

// Client resolves place names via OpenWeatherMap with registry fallback.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new geocoding client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:    "openweathermap-geo",
			Timeout: cfg.Timeout,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

type directResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// Resolve maps a free-form place name to coordinates. The registry is
// consulted first; on a miss the upstream geocoder is queried; an upstream
// hit is snapped to the nearest registry location when one is within the
// service radius, so downstream providers keep working with known places.
func (c *Client) Resolve(ctx context.Context, query string) (Place, error) {
	if loc, ok := location.Find(query); ok {
		return fromRegistry(loc), nil
	}

	if c.apiKey == "" {
		return Place{}, fmt.Errorf("%w: %s", ErrNotFound, query)
	}

	res, err := c.direct(ctx, query)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", query).Msg("upstream geocode failed")
		return Place{}, fmt.Errorf("%w: %s", ErrNotFound, query)
	}

	if loc, _, ok := location.Nearest(res.Lat, res.Lon); ok {
		return fromRegistry(loc), nil
	}

	return Place{
		Name:    res.Name,
		Region:  res.State,
		Country: res.Country,
		Lat:     res.Lat,
		Lon:     res.Lon,
	}, nil
}

// ReverseNearest maps coordinates to the nearest known place, asking the
// upstream reverse geocoder only when the registry has nothing within the
// service radius.
func (c *Client) ReverseNearest(ctx context.Context, lat, lon float64) (Place, error) {
	if loc, _, ok := location.Nearest(lat, lon); ok {
		return fromRegistry(loc), nil
	}

	if c.apiKey == "" {
		return Place{}, ErrNotFound
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", lat))
	q.Set("lon", fmt.Sprintf("%.4f", lon))
	q.Set("limit", "1")
	q.Set("appid", c.apiKey)

	results, err := c.fetch(ctx, c.baseURL+"/geo/1.0/reverse?"+q.Encode())
	if err != nil {
		c.logger.Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("reverse geocode failed")
		return Place{}, ErrNotFound
	}
	if len(results) == 0 {
		return Place{}, ErrNotFound
	}

	return Place{
		Name:    results[0].Name,
		Region:  results[0].State,
		Country: results[0].Country,
		Lat:     results[0].Lat,
		Lon:     results[0].Lon,
	}, nil
}

// direct queries the upstream forward geocoder for one Ghanaian match.
func (c *Client) direct(ctx context.Context, query string) (directResult, error) {
	name := query
	if i := strings.Index(name, ","); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}

	q := url.Values{}
	q.Set("q", name+","+countryCode)
	q.Set("limit", "1")
	q.Set("appid", c.apiKey)

	results, err := c.fetch(ctx, c.baseURL+"/geo/1.0/direct?"+q.Encode())
	if err != nil {
		return directResult{}, err
	}
	if len(results) == 0 {
		return directResult{}, fmt.Errorf("no geocode match for %q", name)
	}
	return results[0], nil
}

func (c *Client) fetch(ctx context.Context, reqURL string) ([]directResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from geocoding endpoint", resp.StatusCode)
	}

	var results []directResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	return results, nil
}

func fromRegistry(loc location.Location) Place {
	return Place{
		Name:    loc.Name,
		Region:  loc.Region,
		Country: "Ghana",
		Lat:     loc.Lat,
		Lon:     loc.Lon,
	}
}
