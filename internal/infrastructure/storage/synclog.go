package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SyncCounts are the final tallies written when a run completes.
type SyncCounts struct {
	TotalPages   int
	TotalFetched int
	Created      int
	Updated      int
	Skipped      int
}

// insertReturningID runs an INSERT and reports the generated id,
// using RETURNING where the driver requires it.
func (s *Storage) insertReturningID(query string, args ...interface{}) (int64, error) {
	if ret := s.dialect.Returning("id"); ret != "" {
		var id int64
		err := s.db.QueryRow(query+ret, args...).Scan(&id)
		return id, err
	}
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// StartSyncLog records the start of a sync run and returns its log id.
func (s *Storage) StartSyncLog(syncType string) (int64, error) {
	d := s.dialect
	now := time.Now().UTC()
	query := fmt.Sprintf(
		`INSERT INTO sync_logs (sync_type, started_at, status, last_progress_update)
		 VALUES (%s)`, d.Placeholders(1, 4))
	id, err := s.insertReturningID(query, syncType, now, SyncStatusRunning, now)
	if err != nil {
		return 0, fmt.Errorf("starting sync log: %w", err)
	}
	return id, nil
}

// UpdateSyncProgress records real-time progress on a running sync log.
func (s *Storage) UpdateSyncProgress(id int64, phase string, totalToProcess, processedCount int, operation string) error {
	d := s.dialect
	query := fmt.Sprintf(
		`UPDATE sync_logs SET current_phase = %s, total_to_process = %s,
		 processed_count = %s, current_operation = %s, last_progress_update = %s
		 WHERE id = %s`,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3),
		d.Placeholder(4), d.Placeholder(5), d.Placeholder(6))
	_, err := s.db.Exec(query, phase, totalToProcess, processedCount, operation, time.Now().UTC(), id)
	return err
}

// CompleteSyncLog finalizes a run as completed with its tallies.
func (s *Storage) CompleteSyncLog(id int64, counts SyncCounts) error {
	d := s.dialect
	query := fmt.Sprintf(
		`UPDATE sync_logs SET status = %s, completed_at = %s,
		 total_pages = %s, total_fetched = %s,
		 created_count = %s, updated_count = %s, skipped_count = %s
		 WHERE id = %s`,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4),
		d.Placeholder(5), d.Placeholder(6), d.Placeholder(7), d.Placeholder(8))
	_, err := s.db.Exec(query,
		SyncStatusCompleted, time.Now().UTC(),
		counts.TotalPages, counts.TotalFetched,
		counts.Created, counts.Updated, counts.Skipped, id)
	return err
}

// FailSyncLog finalizes a run as failed. Tallies reflect whatever was
// persisted before the failure.
func (s *Storage) FailSyncLog(id int64, counts SyncCounts, errMsg string) error {
	d := s.dialect
	query := fmt.Sprintf(
		`UPDATE sync_logs SET status = %s, completed_at = %s, error_message = %s,
		 total_pages = %s, total_fetched = %s,
		 created_count = %s, updated_count = %s, skipped_count = %s
		 WHERE id = %s`,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3),
		d.Placeholder(4), d.Placeholder(5), d.Placeholder(6),
		d.Placeholder(7), d.Placeholder(8), d.Placeholder(9))
	_, err := s.db.Exec(query,
		SyncStatusFailed, time.Now().UTC(), errMsg,
		counts.TotalPages, counts.TotalFetched,
		counts.Created, counts.Updated, counts.Skipped, id)
	return err
}

const syncLogSelect = `
	SELECT id, sync_type, started_at, completed_at, status,
	       total_pages, total_fetched, created_count, updated_count, skipped_count,
	       COALESCE(error_message, ''),
	       COALESCE(current_phase, ''), total_to_process, processed_count,
	       COALESCE(current_operation, ''), last_progress_update
	FROM sync_logs`

func scanSyncLog(row interface{ Scan(...interface{}) error }) (*SyncLog, error) {
	var log SyncLog
	var completedAt, lastProgress sql.NullTime
	err := row.Scan(
		&log.ID, &log.SyncType, &log.StartedAt, &completedAt, &log.Status,
		&log.TotalPages, &log.TotalFetched, &log.Created, &log.Updated, &log.Skipped,
		&log.ErrorMessage,
		&log.CurrentPhase, &log.TotalToProcess, &log.ProcessedCount,
		&log.CurrentOperation, &lastProgress,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		log.CompletedAt = &completedAt.Time
	}
	if lastProgress.Valid {
		log.LastProgressAt = lastProgress.Time
	}
	return &log, nil
}

// GetSyncLog fetches one sync log by id, or nil when absent.
func (s *Storage) GetSyncLog(id int64) (*SyncLog, error) {
	query := syncLogSelect + fmt.Sprintf(" WHERE id = %s", s.dialect.Placeholder(1))
	log, err := scanSyncLog(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return log, err
}

// LatestSyncLog fetches the most recently started run, or nil when no
// run has ever happened.
func (s *Storage) LatestSyncLog() (*SyncLog, error) {
	query := syncLogSelect + " ORDER BY started_at DESC, id DESC " + s.dialect.LimitClause(1, 0)
	log, err := scanSyncLog(s.db.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return log, err
}

// ListSyncLogs returns runs newest first.
func (s *Storage) ListSyncLogs(limit int) ([]SyncLog, error) {
	if limit <= 0 {
		limit = 20
	}
	query := syncLogSelect + " ORDER BY started_at DESC, id DESC " + s.dialect.LimitClause(limit, 0)

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	logs := make([]SyncLog, 0, limit)
	for rows.Next() {
		log, err := scanSyncLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}
	return logs, rows.Err()
}

// HasRunningSync reports whether any run is currently flagged as
// running in the database.
func (s *Storage) HasRunningSync() (bool, error) {
	d := s.dialect
	query := fmt.Sprintf(`SELECT COUNT(*) FROM sync_logs WHERE status = %s`, d.Placeholder(1))
	var n int
	if err := s.db.QueryRow(query, SyncStatusRunning).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
