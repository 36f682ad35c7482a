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

	"github.com/santyhornia-creator/hibot-etl-script/internal/config"
	"github.com/santyhornia-creator/hibot-etl-script/internal/db"
	"github.com/santyhornia-creator/hibot-etl-script/internal/hibot"
	"github.com/santyhornia-creator/hibot-etl-script/internal/scheduler"
	"github.com/santyhornia-creator/hibot-etl-script/internal/services"
	"github.com/santyhornia-creator/hibot-etl-script/pkg/logger"
	"github.com/santyhornia-creator/hibot-etl-script/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

const connectTimeout = 10 * time.Second

// App bundles everything the process runs: the HTTP server, the sync
// scheduler and the database pool they share.
type App struct {
	server    *http.Server
	scheduler *scheduler.Scheduler
	database  *db.Database
}

// SetupApp wires the pipeline from configuration: database, repository,
// HiBot client, sync service, scheduler and HTTP server.
func SetupApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	database, err := db.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := db.NewConversationRepository(database.Pool())

	client, err := hibot.NewClient(cfg.HiBot.BaseURL, cfg.HiBot.AppID, cfg.HiBot.AppSecret)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize hibot client: %w", err)
	}

	syncService, err := services.NewSyncService(client, repo, cfg.Location(), cfg.Sync.Strategy)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize sync service: %w", err)
	}

	sched, err := scheduler.New(syncService, cfg.Sync.IntervalMinutes)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.RequestLogMiddleware(),
		middleware.SecurityHeadersMiddleware(),
		middleware.CORSMiddleware(),
	)
	setupRoutes(router, syncService)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{server: srv, scheduler: sched, database: database}, nil
}

// setupRoutes configures all the HTTP routes
func setupRoutes(router *gin.Engine, runner scheduler.SyncRunner) {
	// Liveness probes; the platform hits the root path.
	router.GET("/", handleHealthCheck)
	router.GET("/health", handleHealthCheck)

	api := router.Group("/api")
	api.POST("/sync/trigger", func(c *gin.Context) {
		handleTriggerSync(c, runner)
	})
}

// handleHealthCheck handles the liveness endpoint
func handleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"version": version,
		"service": "hibot-sync-server",
	})
}

// handleTriggerSync runs one sync pass outside the schedule. The run still
// honors the business-hours gate.
func handleTriggerSync(c *gin.Context, runner scheduler.SyncRunner) {
	logger.Info("Manual sync trigger received")

	summary, err := runner.RunOnce(c.Request.Context())
	if err != nil {
		logger.Error("Manual sync run failed", zap.String("run_id", summary.RunID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "run_id": summary.RunID})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// RunApp starts the scheduler and the HTTP server, then blocks until an
// interrupt arrives and everything has shut down.
func RunApp(app *App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedDone := make(chan error, 1)
	go func() {
		schedDone <- app.scheduler.Run(ctx)
	}()

	go func() {
		logger.Info("Starting server", zap.String("addr", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := app.server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if err := <-schedDone; err != nil {
		return fmt.Errorf("scheduler stopped with error: %w", err)
	}

	return nil
}

// Close releases the application's resources.
func (a *App) Close() {
	if a != nil && a.database != nil {
		a.database.Close()
	}
}
