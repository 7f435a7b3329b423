// Package worker provides background cache warming for AeroHealth.
package worker

import (
	"time"

	"github.com/aerohealth/aerohealth/internal/location"
)

// RefreshConfig holds configuration for the cache refresh job.
type RefreshConfig struct {
	// Cities are the location queries to warm, in priority order.
	// If empty, the registry's regional capitals are used.
	Cities []string

	// Days is the historical range fetched per city.
	// Default: 7
	Days int

	// Concurrency is the number of concurrent city refreshes.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each city refresh.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Cities:      DefaultCities(),
		Days:        7,
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultCities returns the display names of the regional capitals.
func DefaultCities() []string {
	capitals := location.RegionalCapitals()
	cities := make([]string, 0, len(capitals))
	for _, c := range capitals {
		cities = append(cities, c.DisplayName())
	}
	return cities
}

// withDefaults fills the zero fields of a config.
func (c RefreshConfig) withDefaults() RefreshConfig {
	if len(c.Cities) == 0 {
		c.Cities = DefaultCities()
	}
	if c.Days <= 0 {
		c.Days = 7
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}
