package handler

import (
	"net/http"
	"strconv"

	"github.com/aerohealth/aerohealth/internal/api/models"
	"github.com/aerohealth/aerohealth/internal/api/response"
	"github.com/aerohealth/aerohealth/internal/location"
)

// LocationsHandler handles location registry endpoints.
type LocationsHandler struct{}

// NewLocationsHandler creates a new LocationsHandler.
func NewLocationsHandler() *LocationsHandler {
	return &LocationsHandler{}
}

// ListLocations handles GET /v1/locations?region=.
func (h *LocationsHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations := location.All()
	if region := r.URL.Query().Get("region"); region != "" {
		locations = location.ByRegion(region)
	}

	items := make([]models.LocationItem, 0, len(locations))
	for _, l := range locations {
		items = append(items, toLocationItem(l))
	}

	response.JSON(w, r, http.StatusOK, models.LocationsResponse{
		Items:   items,
		Regions: location.Regions(),
		Count:   len(items),
	})
}

// NearestLocation handles GET /v1/locations/nearest?lat=&lon=.
// Positions beyond the service radius report 404.
func (h *LocationsHandler) NearestLocation(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		response.BadRequest(w, r, "lat and lon must be decimal coordinates", []models.FieldError{
			{Field: "lat", Message: "required decimal coordinate", Code: "invalid"},
			{Field: "lon", Message: "required decimal coordinate", Code: "invalid"},
		})
		return
	}

	nearest, distKm, ok := location.Nearest(lat, lon)
	if !ok {
		response.NotFound(w, r, "position is outside the service area")
		return
	}

	response.JSON(w, r, http.StatusOK, models.NearestLocationResponse{
		Location:   toLocationItem(nearest),
		DistanceKm: distKm,
	})
}

func toLocationItem(l location.Location) models.LocationItem {
	return models.LocationItem{
		Name:       l.Name,
		Display:    l.DisplayName(),
		Kind:       string(l.Kind),
		Region:     l.Region,
		Point:      models.Point{Lat: l.Lat, Lon: l.Lon},
		Population: l.Population,
		Timezone:   l.Timezone,
	}
}
