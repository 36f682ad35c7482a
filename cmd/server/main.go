package main

import (
	"fmt"
	"os"

	"github.com/santyhornia-creator/hibot-etl-script/internal/config"
	"github.com/santyhornia-creator/hibot-etl-script/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is a local-development convenience; deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Path, cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	app, err := SetupApp(cfg)
	if err != nil {
		logger.Fatal("Failed to setup application", zap.Error(err))
	}
	defer app.Close()

	if err := RunApp(app); err != nil {
		logger.Fatal("Application error", zap.Error(err))
	}

	logger.Info("Server shut down")
}
