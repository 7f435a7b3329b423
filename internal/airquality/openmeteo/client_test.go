package openmeteo_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerohealth/aerohealth/internal/airquality"
	"github.com/aerohealth/aerohealth/internal/airquality/openmeteo"
)

func TestClient_FetchCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/air-quality", r.URL.Path)
		assert.Equal(t, "5.6037", r.URL.Query().Get("latitude"))
		assert.Equal(t, "UTC", r.URL.Query().Get("timezone"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"current": map[string]interface{}{
				"time":             "2026-08-31T09:00",
				"pm2_5":            14.2,
				"pm10":             33.8,
				"ozone":            51.0,
				"nitrogen_dioxide": 9.4,
				"sulphur_dioxide":  3.1,
				"carbon_monoxide":  310.0,
			},
		})
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	result := client.FetchCurrent(context.Background(), "Accra, Greater Accra")
	require.Equal(t, airquality.StatusFound, result.Status)

	reading := result.Reading
	assert.Equal(t, openmeteo.ProviderName, reading.Source)
	assert.Len(t, reading.Pollutants, 6)
	assert.Equal(t, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), reading.Timestamp)

	require.NotNil(t, reading.AQI)
	assert.Equal(t, 55, *reading.AQI)
}

func TestClient_FetchCurrent_MissingCurrentBlockIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	result := client.FetchCurrent(context.Background(), "Kumasi")
	assert.Equal(t, airquality.StatusTransientError, result.Status)
}

func TestClient_FetchCurrent_UnknownLocationNotServed(t *testing.T) {
	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    "http://unused.invalid",
		HTTPClient: http.DefaultClient,
	})

	result := client.FetchCurrent(context.Background(), "Nowhere")
	assert.Equal(t, airquality.StatusNotServed, result.Status)
}

func TestClient_FetchHourlyHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pm2_5,pm10", r.URL.Query().Get("hourly"))
		assert.Equal(t, "7", r.URL.Query().Get("past_days"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"hourly": map[string]interface{}{
				"time":  []string{"2024-01-15T00:00", "2024-01-15T01:00", "2024-01-15T02:00"},
				"pm2_5": []interface{}{10.0, 36.0, nil},
				"pm10":  []interface{}{22.0, 60.0, 30.0},
			},
		})
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	samples, err := client.FetchHourlyHistory(context.Background(), "Accra", 7)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), samples[0].Date)
	require.NotNil(t, samples[0].PM25)
	assert.Equal(t, 10.0, *samples[0].PM25)
	assert.Equal(t, 42, samples[0].AQI)

	assert.Equal(t, 102, samples[1].AQI)

	// Hour with missing PM2.5 keeps the sample but has no derived index.
	assert.Nil(t, samples[2].PM25)
	assert.Equal(t, 0, samples[2].AQI)
	require.NotNil(t, samples[2].PM10)
	assert.Equal(t, 30.0, *samples[2].PM10)
}

func TestClient_FetchHourlyHistory_UpstreamErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	_, err := client.FetchHourlyHistory(context.Background(), "Accra", 7)
	assert.Error(t, err)

	_, err = client.FetchHourlyHistory(context.Background(), "Atlantis", 7)
	assert.Error(t, err, "unknown location is an error for history, softened by the orchestrator")
}
