package sync

import (
	"context"
	"errors"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
)

// ErrSyncRunning is returned when a sync is triggered while another
// run is still in flight.
var ErrSyncRunning = errors.New("a sync is already running")

// Status values reported to API consumers.
const (
	StatusNeverSynced = "never_synced"
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

// Status is the sync state summary for the dashboard.
type Status struct {
	Status       string           `json:"status"`
	LastRun      *storage.SyncLog `json:"last_run,omitempty"`
	NextSchedule *time.Time       `json:"next_scheduled_run,omitempty"`
}

// Service owns sync execution: manual triggers, the cron schedule and
// the single-run guarantee.
type Service struct {
	source   Source
	storage  *storage.Storage
	logger   *slog.Logger
	pageSize int
	schedule string

	// running guards against concurrent runs in this process; the
	// sync_logs running flag covers restarts and other processes.
	running stdsync.Mutex

	cron *cron.Cron
}

// NewService creates the sync service.
func NewService(source Source, store *storage.Storage, logger *slog.Logger, pageSize int, schedule string) *Service {
	return &Service{
		source:   source,
		storage:  store,
		logger:   logger,
		pageSize: pageSize,
		schedule: schedule,
	}
}

// Trigger starts a sync in the background and returns its run id.
// Returns ErrSyncRunning when a run is already in flight. The request
// context is deliberately not the run's parent: the run must survive
// the HTTP request that started it.
func (s *Service) Trigger(_ context.Context) (int64, error) {
	if !s.running.TryLock() {
		return 0, ErrSyncRunning
	}

	dbRunning, err := s.storage.HasRunningSync()
	if err != nil {
		s.running.Unlock()
		return 0, err
	}
	if dbRunning {
		s.running.Unlock()
		return 0, ErrSyncRunning
	}

	orchestrator := NewOrchestrator(s.source, s.storage, s.logger, s.pageSize)
	runID, err := s.storage.StartSyncLog("full")
	if err != nil {
		s.running.Unlock()
		return 0, err
	}
	// Hand the pre-created log to the orchestrator through a closure
	// so callers get the run id before the work starts.
	go func() {
		defer s.running.Unlock()
		orchestrator.runWithLog(context.Background(), runID)
	}()

	s.logger.Info("sync triggered", "run_id", runID)
	return runID, nil
}

// RunOnce executes a sync synchronously, for the CLI and the cron
// schedule. Returns ErrSyncRunning when one is already in flight.
func (s *Service) RunOnce(ctx context.Context) (*Result, error) {
	if !s.running.TryLock() {
		return nil, ErrSyncRunning
	}
	defer s.running.Unlock()

	dbRunning, err := s.storage.HasRunningSync()
	if err != nil {
		return nil, err
	}
	if dbRunning {
		return nil, ErrSyncRunning
	}

	orchestrator := NewOrchestrator(s.source, s.storage, s.logger, s.pageSize)
	return orchestrator.Run(ctx)
}

// CurrentStatus distinguishes never-synced, running, completed and
// failed from the persisted run history.
func (s *Service) CurrentStatus() (*Status, error) {
	last, err := s.storage.LatestSyncLog()
	if err != nil {
		return nil, err
	}
	if last == nil {
		return &Status{Status: StatusNeverSynced}, nil
	}

	status := &Status{LastRun: last}
	switch last.Status {
	case storage.SyncStatusRunning:
		status.Status = StatusRunning
	case storage.SyncStatusFailed:
		status.Status = StatusFailed
	default:
		status.Status = StatusCompleted
	}
	if s.cron != nil {
		entries := s.cron.Entries()
		if len(entries) > 0 {
			next := entries[0].Next
			status.NextSchedule = &next
		}
	}
	return status, nil
}

// StartScheduler begins periodic syncs on the configured cron
// expression. A no-op when no schedule is configured.
func (s *Service) StartScheduler() error {
	if s.schedule == "" {
		s.logger.Info("sync scheduler disabled: no schedule configured")
		return nil
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			if errors.Is(err, ErrSyncRunning) {
				s.logger.Warn("scheduled sync skipped: previous run still in flight")
				return
			}
			s.logger.Error("scheduled sync failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("sync scheduler started", "schedule", s.schedule)
	return nil
}

// StopScheduler stops the cron schedule, waiting for an in-flight
// scheduled run to finish.
func (s *Service) StopScheduler() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
}
