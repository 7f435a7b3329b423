package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aerohealth/aerohealth/internal/api/models"
	"github.com/aerohealth/aerohealth/internal/api/response"
	"github.com/aerohealth/aerohealth/internal/exposure"
)

// ExposureHandler handles exposure log endpoints.
type ExposureHandler struct {
	tracker *exposure.Tracker
	logger  zerolog.Logger
}

// NewExposureHandler creates a new ExposureHandler.
func NewExposureHandler(tracker *exposure.Tracker, logger zerolog.Logger) *ExposureHandler {
	return &ExposureHandler{tracker: tracker, logger: logger}
}

// GetExposureLog handles GET /v1/exposure/log.
func (h *ExposureHandler) GetExposureLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.tracker.Log(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load exposure log")
		response.InternalError(w, r, "failed to load exposure log")
		return
	}

	today, err := h.tracker.TodayMinutes(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to total today's exposure")
		response.InternalError(w, r, "failed to load exposure log")
		return
	}

	response.JSON(w, r, http.StatusOK, models.ExposureLogResponse{
		Entries:      entries,
		TodayMinutes: today,
		Tracking:     h.tracker.IsTracking(),
	})
}
