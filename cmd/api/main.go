package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medlocator/hospital-map/backend/internal/adapters/cache"
	"github.com/medlocator/hospital-map/backend/internal/adapters/database"
	"github.com/medlocator/hospital-map/backend/internal/adapters/providers/places"
	"github.com/medlocator/hospital-map/backend/internal/api/handlers"
	"github.com/medlocator/hospital-map/backend/internal/api/routes"
	"github.com/medlocator/hospital-map/backend/internal/application/services"
	"github.com/medlocator/hospital-map/backend/internal/classification"
	"github.com/medlocator/hospital-map/backend/internal/domain/providers"
	"github.com/medlocator/hospital-map/backend/internal/domain/repositories"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/clients/postgres"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/clients/redis"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/observability"
	"github.com/medlocator/hospital-map/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Database
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	if cfg.Database.AutoMigrate {
		if err := pgClient.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply database migrations")
		}
	}

	// Redis is optional; the API runs uncached without it
	var cacheProvider providers.CacheProvider
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, running without cache")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
		}
	}

	var hospitalRepo repositories.HospitalRepository = database.NewHospitalAdapter(pgClient, metrics)
	if cacheProvider != nil {
		hospitalRepo = database.NewCachedHospitalAdapter(hospitalRepo, cacheProvider, metrics)
		log.Info().Msg("Hospital repository wrapped with caching layer")
	}

	keywords, err := classification.LoadKeywords(cfg.Search.KeywordsFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Search.KeywordsFile).Msg("Failed to load classifier keywords")
	}

	placesProvider, err := places.NewPlacesProvider(cfg.Search, metrics)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Search.Provider).Msg("Failed to initialize places provider")
	}

	// Services
	hospitalService := services.NewHospitalService(hospitalRepo)
	searchService := services.NewFacilitySearchService(
		placesProvider,
		classification.NewClassifier(keywords),
		hospitalRepo,
		cacheProvider,
		metrics,
		services.SearchOptionsFromConfig(cfg.Search),
	)

	router := routes.NewRouter(
		handlers.NewHospitalHandler(hospitalService),
		handlers.NewSearchHandler(searchService),
		handlers.NewHealthHandler(pgClient),
		metrics,
		cfg.Server.AllowedOrigins,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("env", cfg.Server.Env).Str("provider", cfg.Search.Provider).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}
