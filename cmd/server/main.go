package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tabstats/tabstats/internal/config"
	"github.com/tabstats/tabstats/internal/core"
	"github.com/tabstats/tabstats/internal/logging"
	"github.com/tabstats/tabstats/internal/stats"
	"github.com/tabstats/tabstats/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_upload_mb", cfg.Upload.MaxFileSizeMB,
		"dataset_ttl", cfg.Store.DatasetTTL,
		"result_ttl", cfg.Store.ResultTTL,
		"reaper_interval", cfg.Store.ReaperInterval,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Create the service around the gonum statistics engine
	service := core.NewService(stats.New(), core.Options{
		MaxUploadBytes: cfg.Upload.MaxFileBytes(),
		PreviewRows:    cfg.Upload.PreviewRows,
		DatasetTTL:     cfg.Store.DatasetTTL,
		ResultTTL:      cfg.Store.ResultTTL,
	})

	// Create server with config
	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	// Start the expiry reaper
	go service.StartReaper(jobCtx, cfg.Store.ReaperInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
