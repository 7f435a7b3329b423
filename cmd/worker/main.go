// Package main provides the entrypoint for the AeroHealth cache-warming
// worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/aerohealth/aerohealth/internal/airquality"
	"github.com/aerohealth/aerohealth/internal/airquality/iqair"
	"github.com/aerohealth/aerohealth/internal/airquality/mockdata"
	"github.com/aerohealth/aerohealth/internal/airquality/openaq"
	"github.com/aerohealth/aerohealth/internal/airquality/openmeteo"
	"github.com/aerohealth/aerohealth/internal/cache"
	"github.com/aerohealth/aerohealth/internal/database"
	"github.com/aerohealth/aerohealth/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "aerohealth-worker"

	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AeroHealth worker")

	// Worker also exposes a health endpoint for Cloud Run.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: Postgres when reachable, in-memory otherwise.
	cacheRepo := cache.Repository(cache.NewInMemoryRepository())
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, warming in-memory cache only")
	} else {
		defer pool.Close()
		cacheRepo = cache.NewPostgresRepository(pool)
		log.Info().Str("database", dbConfig.Database).Msg("database connected")
	}

	// Provider fallback chain.
	openaqClient := openaq.NewClient(openaq.ClientConfig{
		APIKey: os.Getenv("OPENAQ_API_KEY"),
	})
	openmeteoClient := openmeteo.NewClient(openmeteo.ClientConfig{})
	airQualityService := airquality.NewService(airquality.ServiceConfig{
		Adapters: []airquality.Adapter{openaqClient, openmeteoClient, iqair.NewClient(), mockdata.NewClient()},
		History:  openmeteoClient,
		Logger:   log,
	})

	cacheService := cache.NewService(cache.ServiceConfig{
		Repository: cacheRepo,
		Logger:     log,
	})

	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:  worker.DefaultRefreshConfig(),
		Logger:  log,
		Fetcher: airQualityService,
		Cache:   cacheService,
	})

	// Health check server.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Prefer Pub/Sub triggering when configured; otherwise fall back to a
	// local refresh ticker.
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")

	if projectID != "" && subscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			RefreshJob:       refreshJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
		log.Info().
			Str("project", projectID).
			Str("subscription", subscription).
			Msg("worker listening for pubsub messages")
	} else {
		interval := 30 * time.Minute
		if raw := os.Getenv("REFRESH_INTERVAL"); raw != "" {
			if parsed, err := time.ParseDuration(raw); err == nil {
				interval = parsed
			}
		}

		go func() {
			log.Info().Dur("interval", interval).Msg("worker refreshing on local timer")
			refreshJob.Run(ctx)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					refreshJob.Run(ctx)
				}
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Fields(refreshJob.MetricsSnapshot()).Msg("worker stopped")
}
