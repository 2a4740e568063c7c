package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/catalogimport/internal/app"
	"github.com/JonMunkholm/catalogimport/internal/config"
	"github.com/JonMunkholm/catalogimport/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded", "config", cfg.String())

	// SIGINT/SIGTERM cancel the run; workers stop before their next record
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, runID := logging.WithRunID(ctx)
	slog.Debug("run started", "run_id", runID)

	if _, err := app.Run(ctx, cfg, os.Stdout); err != nil {
		logger := logging.FromContext(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			logger.Error("import interrupted", "error", err)
		case errors.Is(err, context.DeadlineExceeded):
			logger.Error("import timed out", "timeout", cfg.Import.Timeout, "error", err)
		default:
			logger.Error("import failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}
