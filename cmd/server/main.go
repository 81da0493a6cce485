package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/csvimport/internal/commit"
	"github.com/JonMunkholm/csvimport/internal/config"
	"github.com/JonMunkholm/csvimport/internal/core"
	_ "github.com/JonMunkholm/csvimport/internal/core/entities" // Register built-in entities
	"github.com/JonMunkholm/csvimport/internal/logging"
	"github.com/JonMunkholm/csvimport/internal/schema"
	"github.com/JonMunkholm/csvimport/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
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

	if cfg.Schema.Dir != "" {
		n, err := schema.LoadDir(cfg.Schema.Dir)
		if err != nil {
			slog.Error("failed to load entity catalog", "dir", cfg.Schema.Dir, "error", err)
			os.Exit(1)
		}
		slog.Info("entity catalog loaded", "dir", cfg.Schema.Dir, "entities", n)
	}

	slog.Info("entities registered",
		"count", core.EntityCount(),
		"groups", len(core.Groups()),
	)
	for _, group := range core.Groups() {
		slog.Debug("entity group", "group", group, "entities", len(core.ByGroup(group)))
	}

	ctx := context.Background()
	committer, closeCommitter, err := commit.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open commit backend", "backend", cfg.Commit.Backend, "error", err)
		os.Exit(1)
	}
	defer closeCommitter()

	service := core.NewService(committer, core.ServiceOptions{
		SessionTTL:    cfg.Upload.SessionTTL,
		CommitTimeout: cfg.Commit.Timeout,
		MaxUploadSize: cfg.Upload.MaxFileSize,
		ExtraFields:   cfg.ExtraFieldPolicy(),
		RowSamples:    cfg.Upload.RowSamples,
		ErrorSamples:  cfg.Upload.ErrorSamples,
		Limiter:       core.NewCommitLimiter(cfg.Commit.MaxConcurrent, cfg.Commit.MaxWaitTime),
	})

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests first, then let running commits finish.
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for commits to complete", "active", status.Active)
		}
		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("commits did not complete in time", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		closeCommitter()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
