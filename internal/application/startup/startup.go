// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/container"
	"github.com/AtRiskMedia/pulsetrack-go/internal/application/services"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/pulsetrack-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// Initialize performs the complete startup sequence and blocks until shutdown.
func Initialize() error {
	setupGinMode()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	// Step 1: Channeled logger
	logger, err := logging.NewChanneledLogger(nil)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Startup().Info("PulseTrack engine starting")

	// Step 2: Durable store. Persistence is optional: with no database the
	// engine runs memory-only.
	phaseStart := time.Now()
	var db *database.DB
	db, err = database.NewFromConfig(logger)
	if err != nil {
		logger.Startup().Warn("Database unavailable, continuing without persistence", "error", err.Error())
		db = nil
	}
	logger.LogStartupPhase("database", time.Since(phaseStart), db != nil)

	// Step 3: Dependency injection container
	phaseStart = time.Now()
	appContainer := container.NewContainer(db, logger)
	logger.LogStartupPhase("container", time.Since(phaseStart), true)

	// Step 4: Schema
	if appContainer.Repository != nil {
		phaseStart = time.Now()
		if err := appContainer.Repository.EnsureSchema(); err != nil {
			logger.LogStartupPhase("schema", time.Since(phaseStart), false)
			return fmt.Errorf("failed to prepare event schema: %w", err)
		}
		logger.LogStartupPhase("schema", time.Since(phaseStart), true)
	}

	// Step 5: Seed the rule catalog
	phaseStart = time.Now()
	seeded := services.SeedDefaultRules(appContainer.Store)
	logger.Startup().Info("Personalization rules seeded", "count", seeded)
	logger.LogStartupPhase("rules", time.Since(phaseStart), true)

	// Step 6: Background workers
	phaseStart = time.Now()
	appContainer.WorkerManager.Start(ctx)
	logger.LogStartupPhase("workers", time.Since(phaseStart), true)

	// Step 7: HTTP server
	port := config.Port
	httpServer := server.New(port, appContainer)

	// Step 8: Graceful shutdown wiring
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	// Workers finish their current batch, then exit.
	cancelBackgroundTasks()
	appContainer.WorkerManager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	if db != nil {
		if err := db.Close(); err != nil {
			logger.Shutdown().Error("Error closing database", "error", err.Error())
		}
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return logger.Close()
}

// setupGinMode configures the HTTP framework mode from the environment.
func setupGinMode() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.Println("Running in development mode")
	}
}
