// Package handler provides HTTP handlers for the AeroHealth API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aerohealth/aerohealth/internal/airquality"
	"github.com/aerohealth/aerohealth/internal/api/models"
	"github.com/aerohealth/aerohealth/internal/api/response"
	"github.com/aerohealth/aerohealth/internal/cache"
	"github.com/aerohealth/aerohealth/internal/featureflags"
	"github.com/aerohealth/aerohealth/internal/location/geocode"
)

// DefaultCity is served when the request does not name one.
const DefaultCity = "Accra"

// AirQualityService is the provider fallback chain.
type AirQualityService interface {
	FetchCurrent(ctx context.Context, locationQuery string) (*airquality.Reading, error)
	FetchHistory(ctx context.Context, locationQuery string, days int) []airquality.HistoricalSample
}

// Resolver maps a free-form city query to a known place.
type Resolver interface {
	Resolve(ctx context.Context, query string) (geocode.Place, error)
}

// AirQualityHandler handles air quality endpoints.
type AirQualityHandler struct {
	service  AirQualityService
	cache    *cache.Service
	resolver Resolver
	flags    *featureflags.Service
	logger   zerolog.Logger
}

// NewAirQualityHandler creates a new AirQualityHandler. The cache,
// resolver and flags are optional.
func NewAirQualityHandler(service AirQualityService, cacheSvc *cache.Service, resolver Resolver, flags *featureflags.Service, logger zerolog.Logger) *AirQualityHandler {
	return &AirQualityHandler{
		service:  service,
		cache:    cacheSvc,
		resolver: resolver,
		flags:    flags,
		logger:   logger,
	}
}

// GetAirQuality handles GET /v1/air-quality?city=&days=.
// Current and historical data are fetched concurrently; a successful live
// fetch is written through to the snapshot cache, and a failed one falls
// back to a fresh cached snapshot for the same location before reporting
// 404.
func (h *AirQualityHandler) GetAirQuality(w http.ResponseWriter, r *http.Request) {
	city := h.resolveCity(r)
	days, ok := parseDays(w, r)
	if !ok {
		return
	}
	if days == 0 {
		days = h.defaultDays(r.Context())
	}

	if h.flags != nil && h.flags.IsCachedOnlyAirQuality(r.Context()) {
		if cached, ok := h.readCache(r.Context(), city); ok {
			response.JSON(w, r, http.StatusOK, cached)
			return
		}
		response.NotFound(w, r, "no cached air quality data available for "+city)
		return
	}

	var (
		current    *airquality.Reading
		historical []airquality.HistoricalSample
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		reading, err := h.service.FetchCurrent(ctx, city)
		current = reading
		return err
	})
	g.Go(func() error {
		historical = h.service.FetchHistory(ctx, city, days)
		return nil
	})

	if err := g.Wait(); err != nil {
		if cached, ok := h.readCache(r.Context(), city); ok {
			response.JSON(w, r, http.StatusOK, cached)
			return
		}
		if errors.Is(err, airquality.ErrNoData) {
			response.NotFound(w, r, "no air quality data available for "+city)
			return
		}
		h.logger.Error().Err(err).Str("city", city).Msg("air quality fetch failed")
		response.InternalError(w, r, "failed to fetch air quality data")
		return
	}

	h.writeCache(r.Context(), city, current, historical)

	response.JSON(w, r, http.StatusOK, models.AirQualityResponse{
		Current:    current,
		Historical: historical,
	})
}

// GetHistorical handles GET /v1/air-quality/historical?city=&days=.
// Always 200; the series is empty when nothing could be fetched.
func (h *AirQualityHandler) GetHistorical(w http.ResponseWriter, r *http.Request) {
	city := h.resolveCity(r)
	days, ok := parseDays(w, r)
	if !ok {
		return
	}
	if days == 0 {
		days = h.defaultDays(r.Context())
	}

	historical := h.service.FetchHistory(r.Context(), city, days)
	response.JSON(w, r, http.StatusOK, models.HistoricalResponse{
		Location:   city,
		Days:       days,
		Historical: historical,
	})
}

// resolveCity normalizes the city query, snapping unknown names to known
// places through the geocoder when one is configured.
func (h *AirQualityHandler) resolveCity(r *http.Request) string {
	city := r.URL.Query().Get("city")
	if city == "" {
		return DefaultCity
	}
	if h.resolver == nil {
		return city
	}

	place, err := h.resolver.Resolve(r.Context(), city)
	if err != nil {
		// Let the fallback chain decide; its mock still declines unknowns.
		return city
	}
	if place.Region != "" {
		return place.Name + ", " + place.Region
	}
	return place.Name
}

// defaultDays is the historical range applied when the request omits days.
func (h *AirQualityHandler) defaultDays(ctx context.Context) int {
	if h.flags == nil {
		return airquality.DefaultHistoryDays
	}
	return h.flags.HistoricalDays(ctx)
}

func (h *AirQualityHandler) readCache(ctx context.Context, city string) (models.AirQualityResponse, bool) {
	if h.cache == nil {
		return models.AirQualityResponse{}, false
	}
	snapshot, ok := h.cache.Read(ctx, city)
	if !ok {
		return models.AirQualityResponse{}, false
	}
	return models.AirQualityResponse{
		Current:    snapshot.AirQuality,
		Historical: snapshot.Historical,
		Cached:     true,
	}, true
}

func (h *AirQualityHandler) writeCache(ctx context.Context, city string, current *airquality.Reading, historical []airquality.HistoricalSample) {
	if h.cache == nil || current == nil {
		return
	}
	if err := h.cache.Write(ctx, current, historical, city); err != nil {
		h.logger.Warn().Err(err).Str("city", city).Msg("cache write-through failed")
	}
}

// parseDays reads the days query parameter. Zero means unset; the service
// applies its own default and clamping. A malformed value is a 400.
func parseDays(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		response.BadRequest(w, r, "days must be a non-negative integer", []models.FieldError{
			{Field: "days", Message: "must be a non-negative integer", Code: "invalid"},
		})
		return 0, false
	}
	return days, true
}
