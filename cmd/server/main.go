// cmd/server/main.go
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

	"github.com/hvdc-project/warehouse-flow/internal/api"
	"github.com/hvdc-project/warehouse-flow/internal/cache"
	"github.com/hvdc-project/warehouse-flow/internal/config"
	"github.com/hvdc-project/warehouse-flow/internal/pipeline"
	"github.com/hvdc-project/warehouse-flow/internal/repository/postgres"
	"github.com/hvdc-project/warehouse-flow/internal/service"
	"github.com/hvdc-project/warehouse-flow/internal/storage"
	"github.com/hvdc-project/warehouse-flow/pkg/logger"
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
		logger.UseJSON()
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize cache (noop when disabled)
	stockCache, err := cache.NewStockCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("cache unavailable, continuing without")
		stockCache = cache.NewNoopStockCache()
	}

	repo := postgres.NewStockRepository(db)
	stockService := service.NewStockService(repo, stockCache)

	// Optional report archive
	var archive storage.ObjectStorage
	if cfg.Storage.Enabled {
		client, err := storage.NewS3Client(cfg.Storage)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("report archive unavailable, continuing without")
		} else {
			archive = client
		}
	}

	orchestrator, err := pipeline.FromConfig(cfg, stockService, archive)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to build pipeline")
	}

	router := api.NewRouter(&api.Services{
		StockService: stockService,
		Runner:       orchestrator,
		UploadDir:    cfg.App.UploadDir,
	}, cfg.Server.AllowedOrigins)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
