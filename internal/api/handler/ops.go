package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/aerohealth/aerohealth/internal/api/models"
	"github.com/aerohealth/aerohealth/internal/api/response"
	"github.com/aerohealth/aerohealth/internal/cache"
	"github.com/aerohealth/aerohealth/internal/provider/resilience"
)

// Pinger verifies a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	db        Pinger
	providers *resilience.Registry
	cache     *cache.Service
}

// NewOpsHandler creates a new OpsHandler. The database, provider registry
// and cache are optional; absent dependencies are omitted from status
// reports.
func NewOpsHandler(version, buildTime string, db Pinger, providers *resilience.Registry, cacheSvc *cache.Service) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		db:        db,
		providers: providers,
		cache:     cacheSvc,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Fails when
// the database is unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{"database": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider circuit health and
// cache state.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       now,
		Subsystems: h.subsystems(r.Context()),
		Providers:  h.providerStatuses(),
	}

	if h.cache != nil {
		status.Cache = cacheStatus(h.cache.Status(r.Context()))
	}

	for _, s := range status.Subsystems {
		if s.Status == models.HealthStatusFail {
			status.Status = models.HealthStatusDegraded
		}
	}
	for _, p := range status.Providers {
		if p.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) subsystems(ctx context.Context) []models.SubsystemStatus {
	if h.db == nil {
		return []models.SubsystemStatus{}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	dbStatus := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
	if err := h.db.Ping(pingCtx); err != nil {
		detail := err.Error()
		dbStatus.Status = models.HealthStatusFail
		dbStatus.Detail = &detail
	}
	return []models.SubsystemStatus{dbStatus}
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.providers == nil {
		return []models.ProviderStatus{}
	}

	healths := h.providers.AllHealth()
	out := make([]models.ProviderStatus, 0, len(healths))
	for _, ph := range healths {
		ps := models.ProviderStatus{
			Provider:     ph.Name,
			Status:       models.HealthStatusOK,
			CircuitState: ph.CircuitState.String(),
			Failures:     int(ph.Counts.TotalFailures),
		}
		if !ph.Healthy() {
			ps.Status = models.HealthStatusDegraded
		}
		if ph.LastSuccessAt != nil {
			ts := models.Timestamp(*ph.LastSuccessAt)
			ps.LastSuccessAt = &ts
		}
		if ph.LastFailureAt != nil {
			ts := models.Timestamp(*ph.LastFailureAt)
			ps.LastFailureAt = &ts
		}
		out = append(out, ps)
	}
	return out
}

func cacheStatus(s cache.Status) *models.CacheStatus {
	cs := &models.CacheStatus{
		HasData:  s.HasData,
		Fresh:    s.Fresh,
		Online:   s.Online,
		Location: s.Location,
		Source:   s.Source,
	}
	if !s.WrittenAt.IsZero() {
		ts := models.Timestamp(s.WrittenAt)
		cs.WrittenAt = &ts
	}
	return cs
}
