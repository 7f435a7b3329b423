package iqair_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerohealth/aerohealth/internal/airquality"
	"github.com/aerohealth/aerohealth/internal/airquality/iqair"
)

func TestClient_NeverFailsForRegistryLocations(t *testing.T) {
	client := iqair.NewClient()

	result := client.FetchCurrent(context.Background(), "Sekondi-Takoradi, Western")
	require.Equal(t, airquality.StatusFound, result.Status)

	reading := result.Reading
	assert.Equal(t, iqair.ProviderName, reading.Source)
	assert.Equal(t, "Sekondi-Takoradi", reading.City)
	assert.Len(t, reading.Pollutants, 6)
	require.NotNil(t, reading.AQI)
	assert.GreaterOrEqual(t, *reading.AQI, 0)
}

func TestClient_StableWithinMinute(t *testing.T) {
	base := time.Date(2026, 8, 31, 18, 10, 1, 0, time.UTC)
	clock := base
	client := iqair.NewClientAt(func() time.Time { return clock })

	first := client.FetchCurrent(context.Background(), "Kumasi")
	clock = base.Add(30 * time.Second)
	second := client.FetchCurrent(context.Background(), "Kumasi")

	firstPM25, _ := first.Reading.PM25()
	secondPM25, _ := second.Reading.PM25()
	assert.Equal(t, firstPM25, secondPM25)
}

func TestClient_UnknownLocationNotServed(t *testing.T) {
	client := iqair.NewClient()
	result := client.FetchCurrent(context.Background(), "Lagos, Nigeria")
	assert.Equal(t, airquality.StatusNotServed, result.Status)
}
