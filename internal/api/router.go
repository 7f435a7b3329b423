// Package api provides the HTTP API for AeroHealth.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aerohealth/aerohealth/internal/api/handler"
	"github.com/aerohealth/aerohealth/internal/api/middleware"
	"github.com/aerohealth/aerohealth/internal/cache"
	"github.com/aerohealth/aerohealth/internal/exposure"
	"github.com/aerohealth/aerohealth/internal/featureflags"
	"github.com/aerohealth/aerohealth/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	AirQuality handler.AirQualityService
	Resolver   handler.Resolver
	Cache      *cache.Service
	Tracker    *exposure.Tracker
	Flags      *featureflags.Service
	Database   handler.Pinger
	Providers  *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "aerohealth-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	airQualityHandler := handler.NewAirQualityHandler(cfg.AirQuality, cfg.Cache, cfg.Resolver, cfg.Flags, cfg.Logger)
	locationsHandler := handler.NewLocationsHandler()
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Database, cfg.Providers, cfg.Cache)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Air quality endpoints fan out to upstream providers - strict limits
		r.Route("/air-quality", func(r chi.Router) {
			r.Use(expensiveRateLimit)
			r.Get("/", airQualityHandler.GetAirQuality)
			r.Get("/historical", airQualityHandler.GetHistorical)
		})

		// Location registry (static data)
		r.Route("/locations", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", locationsHandler.ListLocations)
			r.Get("/nearest", locationsHandler.NearestLocation)
		})

		// Exposure log
		if cfg.Tracker != nil {
			exposureHandler := handler.NewExposureHandler(cfg.Tracker, cfg.Logger)
			r.With(standardRateLimit).Get("/exposure/log", exposureHandler.GetExposureLog)
		}

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})
	})

	return r
}
