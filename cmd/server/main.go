// The server command runs the returns dashboard backend: the HTTP
// API, the scheduled Warehance sync, and email report shares.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/uptimeops/warehance-returns-backend/internal/api"
	"github.com/uptimeops/warehance-returns-backend/internal/emailshare"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/config"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/logging"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
	syncsvc "github.com/uptimeops/warehance-returns-backend/internal/sync"
	"github.com/uptimeops/warehance-returns-backend/internal/warehance"
)

func main() {
	cfg := config.LoadOrEnv()
	logger := logging.NewLogger(cfg.Observability.Logging)

	if cfg.Observability.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Observability.SentryDSN,
			AttachStacktrace: true,
		})
		if err != nil {
			logger.Warn("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	store, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	client := warehance.NewClient(cfg, logging.NewLoggerWithSystem(cfg.Observability.Logging, "warehance"))

	syncService := syncsvc.NewService(client, store,
		logging.NewLoggerWithSystem(cfg.Observability.Logging, "sync"),
		cfg.Sync.PageSize, cfg.Sync.Schedule)
	if cfg.Sync.Schedule != "" {
		if err := syncService.StartScheduler(); err != nil {
			logger.Error("failed to start sync scheduler", "error", err)
			os.Exit(1)
		}
		defer syncService.StopScheduler()
		logger.Info("sync scheduler started", "schedule", cfg.Sync.Schedule)
	}

	shares := emailshare.NewService(store,
		cfg.Email.SendGridAPIKey, cfg.Email.FromAddress, cfg.Email.FromName,
		logging.NewLoggerWithSystem(cfg.Observability.Logging, "emailshare"))

	server := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, store, syncService, shares, logging.NewLoggerWithSystem(cfg.Observability.Logging, "api"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}
