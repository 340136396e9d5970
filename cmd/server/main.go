// backend-go/cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/novamart/novamart-dashboard/backend-go/internal/api"
	"github.com/novamart/novamart-dashboard/backend-go/internal/cache"
	"github.com/novamart/novamart-dashboard/backend-go/internal/config"
	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
	"github.com/novamart/novamart-dashboard/backend-go/internal/forecast"
	"github.com/novamart/novamart-dashboard/backend-go/internal/pipeline"
	"github.com/novamart/novamart-dashboard/backend-go/internal/repository/postgres"
	"github.com/novamart/novamart-dashboard/backend-go/internal/service"
	"github.com/novamart/novamart-dashboard/backend-go/internal/storage"
	"github.com/novamart/novamart-dashboard/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	if cfg.Server.Mode == "debug" {
		logger.SetLevel("debug")
		gin.SetMode(gin.DebugMode)
	} else {
		logger.SetLevel("info")
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Caches are no-ops unless Redis is configured
	forecastCache := cache.NewNoopForecastCache()
	summaryCache := cache.NewNoopSummaryCache()
	if cfg.Cache.Enabled {
		if forecastCache, err = cache.NewForecastCache(cfg.Cache); err != nil {
			log.Fatalf("Failed to connect forecast cache: %v", err)
		}
		if summaryCache, err = cache.NewSummaryCache(cfg.Cache); err != nil {
			log.Fatalf("Failed to connect summary cache: %v", err)
		}
	}

	// Optional per-product policy overrides from YAML
	var profiles *config.PolicyProfiles
	if cfg.App.PolicyFile != "" {
		profiles, err = config.LoadPolicyProfiles(cfg.App.PolicyFile)
		if err != nil {
			log.Fatalf("Failed to load policy profiles: %v", err)
		}
		logger.Log.Info().Str("file", cfg.App.PolicyFile).
			Int("overrides", len(profiles.Products)).Msg("Loaded policy profiles")
	}

	repo := postgres.NewSalesRepository(db)
	defaults := cfg.Analytics.DefaultPolicy()

	// Replan pipeline: run state lives in Postgres; run reports are mirrored
	// to object storage when an endpoint is configured
	var store storage.ObjectStorage
	if cfg.Storage.Endpoint != "" {
		minioStore, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to connect object storage: %v", err)
		}
		store = minioStore
	}

	resolve := pipeline.PolicyResolver(func(product string) domain.PolicyParams {
		if profiles != nil {
			return profiles.Resolve(product)
		}
		return defaults
	})

	pipeCfg := pipeline.DefaultConfig()
	if cfg.Analytics.Workers > 0 {
		pipeCfg.WorkerCount = cfg.Analytics.Workers
	}
	orchestrator := pipeline.NewOrchestrator(pipeCfg, pipeline.NewSQLRunTracker(db.DB.DB), repo, repo, store, resolve)

	// Initialize services
	analyticsService := service.NewAnalyticsService(repo, summaryCache, profiles, defaults, orchestrator, cfg.Analytics.Workers)
	forecastService := service.NewForecastService(repo, forecast.DefaultAdapter(), forecastCache, cfg.Analytics.ForecastHorizonDays)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		Analytics: analyticsService,
		Forecast:  forecastService,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
