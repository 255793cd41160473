// The sync command runs one full Warehance sync and exits. Useful for
// cron jobs outside the server process and for backfills.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/config"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/logging"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
	syncsvc "github.com/uptimeops/warehance-returns-backend/internal/sync"
	"github.com/uptimeops/warehance-returns-backend/internal/warehance"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "sync")

	if cfg.Warehance.APIKey == "" {
		logger.Error("WAREHANCE_API_KEY is not set")
		os.Exit(1)
	}

	store, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := warehance.NewClient(cfg, logger)
	service := syncsvc.NewService(client, store, logger, cfg.Sync.PageSize, "")

	result, err := service.RunOnce(ctx)
	if err != nil {
		if errors.Is(err, syncsvc.ErrSyncRunning) {
			logger.Error("another sync is already running")
		} else {
			logger.Error("sync failed", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("sync completed",
		"run_id", result.RunID,
		"pages", result.Pages,
		"fetched", result.Fetched,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
	)
	if len(result.Errors) > 0 {
		logger.Warn("sync finished with record errors", "count", len(result.Errors))
	}
}
