// Package main provides the entrypoint for the AeroHealth API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/aerohealth/aerohealth/internal/airquality"
	"github.com/aerohealth/aerohealth/internal/airquality/iqair"
	"github.com/aerohealth/aerohealth/internal/airquality/mockdata"
	"github.com/aerohealth/aerohealth/internal/airquality/openaq"
	"github.com/aerohealth/aerohealth/internal/airquality/openmeteo"
	"github.com/aerohealth/aerohealth/internal/api"
	"github.com/aerohealth/aerohealth/internal/api/handler"
	"github.com/aerohealth/aerohealth/internal/api/middleware"
	"github.com/aerohealth/aerohealth/internal/cache"
	"github.com/aerohealth/aerohealth/internal/database"
	"github.com/aerohealth/aerohealth/internal/exposure"
	"github.com/aerohealth/aerohealth/internal/featureflags"
	"github.com/aerohealth/aerohealth/internal/geo"
	"github.com/aerohealth/aerohealth/internal/location/geocode"
	"github.com/aerohealth/aerohealth/internal/provider/resilience"
	"github.com/aerohealth/aerohealth/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "aerohealth-api"

	// Load .env in development; absent files are fine.
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AeroHealth API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database. The API degrades to in-memory storage when no
	// database is reachable, which keeps local development dependency-free.
	var dbPinger handler.Pinger
	cacheRepo := cache.Repository(cache.NewInMemoryRepository())
	exposureRepo := exposure.Repository(exposure.NewInMemoryRepository())

	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, using in-memory storage")
	} else {
		defer pool.Close()
		dbPinger = pool
		cacheRepo = cache.NewPostgresRepository(pool)
		exposureRepo = exposure.NewPostgresRepository(pool)
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
	}

	// Resilient HTTP clients for the upstream providers, registered for
	// circuit health reporting.
	providers := resilience.NewRegistry()

	openaqHTTP := resilience.NewClient(resilience.ClientConfig{Name: "openaq"})
	openmeteoHTTP := resilience.NewClient(resilience.ClientConfig{Name: "open-meteo"})
	geocodeHTTP := resilience.NewClient(resilience.ClientConfig{Name: "openweathermap-geo"})
	providers.Register(openaqHTTP)
	providers.Register(openmeteoHTTP)
	providers.Register(geocodeHTTP)

	// Provider fallback chain, most authoritative first.
	openaqClient := openaq.NewClient(openaq.ClientConfig{
		APIKey:     os.Getenv("OPENAQ_API_KEY"),
		HTTPClient: openaqHTTP,
	})
	openmeteoClient := openmeteo.NewClient(openmeteo.ClientConfig{
		HTTPClient: openmeteoHTTP,
	})
	iqairClient := iqair.NewClient()
	mockClient := mockdata.NewClient()

	airQualityService := airquality.NewService(airquality.ServiceConfig{
		Adapters: []airquality.Adapter{openaqClient, openmeteoClient, iqairClient, mockClient},
		History:  openmeteoClient,
		Logger:   log,
	})
	log.Info().Msg("air quality service initialized")

	cacheConfig := cache.ServiceConfig{
		Repository: cacheRepo,
		Logger:     log,
	}
	if cacheMetrics, err := middleware.NewProviderMetrics("snapshot-cache"); err != nil {
		log.Warn().Err(err).Msg("cache metrics disabled")
	} else {
		cacheConfig.Metrics = cacheMetrics
	}
	cacheService := cache.NewService(cacheConfig)

	resolver := geocode.NewClient(geocode.ClientConfig{
		APIKey:     os.Getenv("OPENWEATHER_API_KEY"),
		HTTPClient: geocodeHTTP,
		Logger:     log,
	})

	// Feature flags, database-backed when possible.
	flagsRepo := featureflags.Repository(featureflags.NewInMemoryRepositoryWithFlags(featureflags.DefaultFlags()))
	if pool != nil {
		flagsRepo = featureflags.NewPostgresRepository(pool)
	}
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagsRepo,
		Logger:     log,
	})

	// Exposure tracker. The server-side position source is a fixed point,
	// configurable for kiosk-style deployments; tracking starts on demand
	// via TRACKING_ENABLED.
	tracker := exposure.NewTracker(exposure.TrackerConfig{
		Source:     trackingSource(),
		Fetcher:    airQualityService,
		Repository: exposureRepo,
		Logger:     log,
	})
	if os.Getenv("TRACKING_ENABLED") == "true" && !flags.IsExposureTrackingDisabled(ctx) {
		if err := tracker.Start(ctx); err != nil {
			log.Error().Err(err).Msg("failed to start exposure tracking")
		} else {
			defer tracker.Stop()
		}
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		AirQuality:  airQualityService,
		Resolver:    resolver,
		Cache:       cacheService,
		Tracker:     tracker,
		Flags:       flags,
		Database:    dbPinger,
		Providers:   providers,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// trackingSource builds the position source from TRACK_LAT/TRACK_LON,
// defaulting to central Accra.
func trackingSource() geo.Source {
	pos := geo.Position{Latitude: 5.6037, Longitude: -0.187}
	if lat, err := strconv.ParseFloat(os.Getenv("TRACK_LAT"), 64); err == nil {
		pos.Latitude = lat
	}
	if lon, err := strconv.ParseFloat(os.Getenv("TRACK_LON"), 64); err == nil {
		pos.Longitude = lon
	}
	return &geo.StaticSource{Position: pos}
}
