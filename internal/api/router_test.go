package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerohealth/aerohealth/internal/airquality"
	"github.com/aerohealth/aerohealth/internal/api"
	"github.com/aerohealth/aerohealth/internal/api/models"
	"github.com/aerohealth/aerohealth/internal/cache"
	"github.com/aerohealth/aerohealth/internal/exposure"
	"github.com/aerohealth/aerohealth/internal/featureflags"
	"github.com/aerohealth/aerohealth/internal/geo"
)

// stubService is a scripted AirQualityService.
type stubService struct {
	reading    *airquality.Reading
	err        error
	historical []airquality.HistoricalSample
}

func (s *stubService) FetchCurrent(_ context.Context, _ string) (*airquality.Reading, error) {
	return s.reading, s.err
}

func (s *stubService) FetchHistory(_ context.Context, _ string, _ int) []airquality.HistoricalSample {
	return s.historical
}

func testReading(city string) *airquality.Reading {
	return &airquality.Reading{
		AQI:       airquality.IntPtr(62),
		City:      city,
		Country:   "Ghana",
		Location:  city + ", Greater Accra",
		Timestamp: time.Now().UTC(),
		Source:    "OpenAQ",
	}
}

func newTestRouter(svc *stubService) http.Handler {
	logger := zerolog.New(io.Discard)
	cacheSvc := cache.NewService(cache.ServiceConfig{
		Repository: cache.NewInMemoryRepository(),
		Logger:     logger,
	})
	tracker := exposure.NewTracker(exposure.TrackerConfig{
		Source:     &geo.StaticSource{},
		Fetcher:    svcFetcher{svc},
		Repository: exposure.NewInMemoryRepository(),
		Logger:     logger,
	})

	return api.NewRouter(api.RouterConfig{
		Version:    "test",
		BuildTime:  "2024-01-01T00:00:00Z",
		Logger:     logger,
		AirQuality: svc,
		Cache:      cacheSvc,
		Tracker:    tracker,
	})
}

type svcFetcher struct{ svc *stubService }

func (f svcFetcher) FetchCurrent(ctx context.Context, q string) (*airquality.Reading, error) {
	return f.svc.FetchCurrent(ctx, q)
}

func doRequest(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetAirQuality(t *testing.T) {
	svc := &stubService{
		reading: testReading("Accra"),
		historical: []airquality.HistoricalSample{
			{Date: time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), AQI: 55},
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/v1/air-quality?city=Accra")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var body models.AirQualityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Current)
	assert.Equal(t, 62, *body.Current.AQI)
	assert.Len(t, body.Historical, 1)
	assert.False(t, body.Cached)
}

func TestGetAirQualityNotFound(t *testing.T) {
	svc := &stubService{err: airquality.ErrNoData}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/v1/air-quality?city=Atlantis")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "no air quality data available")
}

func TestGetAirQualityServesCacheWhenChainFails(t *testing.T) {
	svc := &stubService{reading: testReading("Kumasi")}
	router := newTestRouter(svc)

	// Warm the cache with a live fetch, then break the chain.
	rec := doRequest(t, router, http.MethodGet, "/v1/air-quality?city=Kumasi")
	require.Equal(t, http.StatusOK, rec.Code)

	svc.reading = nil
	svc.err = airquality.ErrNoData

	rec = doRequest(t, router, http.MethodGet, "/v1/air-quality?city=Kumasi")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.AirQualityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Cached)
	require.NotNil(t, body.Current)
	assert.Equal(t, "Kumasi", body.Current.City)
}

func TestGetAirQualityCachedOnlyFlag(t *testing.T) {
	logger := zerolog.New(io.Discard)
	cacheSvc := cache.NewService(cache.ServiceConfig{
		Repository: cache.NewInMemoryRepository(),
		Logger:     logger,
	})
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(),
		Logger:     logger,
	})
	require.NoError(t, flags.SetFlag(context.Background(), &featureflags.Flag{
		Key:   featureflags.FlagCachedOnlyAirQuality,
		Value: true,
	}))

	svc := &stubService{reading: testReading("Accra")}
	router := api.NewRouter(api.RouterConfig{
		Version:    "test",
		Logger:     logger,
		AirQuality: svc,
		Cache:      cacheSvc,
		Flags:      flags,
	})

	// Nothing cached yet, and the provider chain must not be consulted.
	rec := doRequest(t, router, http.MethodGet, "/v1/air-quality")
	require.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, cacheSvc.Write(context.Background(), testReading("Accra"), nil, "Accra"))

	rec = doRequest(t, router, http.MethodGet, "/v1/air-quality")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.AirQualityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Cached)
}

func TestGetAirQualityInternalError(t *testing.T) {
	svc := &stubService{err: context.DeadlineExceeded}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/v1/air-quality")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestGetAirQualityRejectsMalformedDays(t *testing.T) {
	router := newTestRouter(&stubService{reading: testReading("Accra")})

	rec := doRequest(t, router, http.MethodGet, "/v1/air-quality?days=soon")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "days")
}

func TestGetHistoricalAlwaysOK(t *testing.T) {
	svc := &stubService{historical: []airquality.HistoricalSample{}}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/v1/air-quality/historical?city=Tamale&days=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.HistoricalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Days)
	assert.Empty(t, body.Historical)
}

func TestListLocations(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/v1/locations")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.LocationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, len(body.Items), body.Count)
	assert.NotEmpty(t, body.Items)
	assert.Len(t, body.Regions, 10)
}

func TestListLocationsByRegion(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/v1/locations?region=Ashanti")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.LocationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Items)
	for _, item := range body.Items {
		assert.Equal(t, "Ashanti", item.Region)
	}
}

func TestNearestLocation(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/v1/locations/nearest?lat=5.61&lon=-0.19")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.NearestLocationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Accra", body.Location.Name)
	assert.Less(t, body.DistanceKm, 5.0)
}

func TestNearestLocationOutsideServiceArea(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/v1/locations/nearest?lat=48.85&lon=2.35")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "outside the service area")
}

func TestNearestLocationRejectsMalformedCoordinates(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/v1/locations/nearest?lat=here&lon=there")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetExposureLogEmpty(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/v1/exposure/log")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.ExposureLogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Entries)
	assert.Zero(t, body.TodayMinutes)
	assert.False(t, body.Tracking)
}

func TestOpsHealth(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/v1/ops/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"OK"`)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
}

func TestOpsReady(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/v1/ops/ready")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOpsStatusIncludesCache(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/v1/ops/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.HealthStatusOK, body.Status)
	require.NotNil(t, body.Cache)
	assert.False(t, body.Cache.HasData)
	assert.True(t, body.Cache.Online)
}

func TestUnknownRouteIs404(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/v1/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSecurityHeadersApplied(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/v1/ops/health")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
