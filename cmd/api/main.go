package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/novamart/novamart-dashboard/backend-go/internal/cache"
	"github.com/novamart/novamart-dashboard/backend-go/internal/config"
	"github.com/novamart/novamart-dashboard/backend-go/internal/ingest"
	"github.com/novamart/novamart-dashboard/backend-go/internal/repository"
	"github.com/novamart/novamart-dashboard/backend-go/internal/repository/postgres"
)

// The ingest server runs separately from the dashboard API so a slow file
// load never competes with dashboard traffic.
func main() {
	cfg := config.Load()

	driveClient, err := ingest.NewDriveClient(cfg.Ingest.CredentialsJSON)
	if err != nil {
		log.Fatalf("Failed to initialize Google Drive client: %v", err)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ingestRepo := repository.NewIngestRepository(db.DB.DB)

	forecastCache := cache.NewNoopForecastCache()
	summaryCache := cache.NewNoopSummaryCache()
	if cfg.Cache.Enabled {
		if forecastCache, err = cache.NewForecastCache(cfg.Cache); err != nil {
			log.Fatalf("Failed to initialize forecast cache: %v", err)
		}
		if summaryCache, err = cache.NewSummaryCache(cfg.Cache); err != nil {
			log.Fatalf("Failed to initialize summary cache: %v", err)
		}
	}

	ingestService := ingest.NewService(driveClient, ingestRepo, forecastCache, summaryCache)

	r := mux.NewRouter()
	ingestHandler := ingest.NewHandler(driveClient, ingestService)
	ingestHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Poll the Drive folder in the background when one is configured.
	if cfg.Ingest.DriveFolderID != "" {
		watcher := ingest.NewWatcher(driveClient, ingestService, ingestRepo,
			cfg.Ingest.DriveFolderID, time.Duration(cfg.Ingest.PollIntervalSeconds)*time.Second)
		go watcher.Run(ctx)
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
	}).Handler(r)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		log.Printf("Ingest server starting on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down ingest server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
}
