package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateEmailShare records a pending share and the exact set of returns
// it covers. The id of the new share is returned.
func (s *Storage) CreateEmailShare(share *EmailShare, returnIDs []int64) (int64, error) {
	d := s.dialect

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	insert := fmt.Sprintf(
		`INSERT INTO email_shares (client_id, recipient_email, subject,
		 date_range_start, date_range_end, total_returns_shared, share_status, created_at)
		 VALUES (%s)`, d.Placeholders(1, 8))

	now := time.Now().UTC()
	var id int64
	if ret := d.Returning("id"); ret != "" {
		err = tx.QueryRow(insert+ret,
			share.ClientID, share.RecipientEmail, share.Subject,
			share.DateRangeStart, share.DateRangeEnd, len(returnIDs),
			ShareStatusPending, now).Scan(&id)
		if err != nil {
			return 0, err
		}
	} else {
		res, err := tx.Exec(insert,
			share.ClientID, share.RecipientEmail, share.Subject,
			share.DateRangeStart, share.DateRangeEnd, len(returnIDs),
			ShareStatusPending, now)
		if err != nil {
			return 0, err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
	}

	itemInsert := fmt.Sprintf(
		`INSERT INTO email_share_items (email_share_id, return_id) VALUES (%s)`,
		d.Placeholders(1, 2))
	for _, returnID := range returnIDs {
		if _, err := tx.Exec(itemInsert, id, returnID); err != nil {
			return 0, fmt.Errorf("recording share item %d: %w", returnID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// MarkEmailShareSent flags a share as delivered.
func (s *Storage) MarkEmailShareSent(id int64) error {
	d := s.dialect
	query := fmt.Sprintf(
		`UPDATE email_shares SET share_status = %s, sent_at = %s WHERE id = %s`,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3))
	_, err := s.db.Exec(query, ShareStatusSent, time.Now().UTC(), id)
	return err
}

// MarkEmailShareFailed flags a share as failed to deliver.
func (s *Storage) MarkEmailShareFailed(id int64) error {
	d := s.dialect
	query := fmt.Sprintf(
		`UPDATE email_shares SET share_status = %s WHERE id = %s`,
		d.Placeholder(1), d.Placeholder(2))
	_, err := s.db.Exec(query, ShareStatusFailed, id)
	return err
}

const emailShareSelect = `
	SELECT id, client_id, COALESCE(recipient_email, ''), COALESCE(subject, ''),
	       date_range_start, date_range_end, total_returns_shared,
	       share_status, sent_at, created_at
	FROM email_shares`

func scanEmailShare(row interface{ Scan(...interface{}) error }) (*EmailShare, error) {
	var share EmailShare
	var sentAt sql.NullTime
	err := row.Scan(
		&share.ID, &share.ClientID, &share.RecipientEmail, &share.Subject,
		&share.DateRangeStart, &share.DateRangeEnd, &share.TotalReturns,
		&share.Status, &sentAt, &share.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sentAt.Valid {
		share.SentAt = &sentAt.Time
	}
	return &share, nil
}

// GetEmailShare fetches a share by id, or nil when absent.
func (s *Storage) GetEmailShare(id int64) (*EmailShare, error) {
	query := emailShareSelect + fmt.Sprintf(" WHERE id = %s", s.dialect.Placeholder(1))
	share, err := scanEmailShare(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return share, err
}

// ListEmailShares returns share history newest first.
func (s *Storage) ListEmailShares(limit int) ([]EmailShare, error) {
	if limit <= 0 {
		limit = 50
	}
	query := emailShareSelect + " ORDER BY created_at DESC, id DESC " + s.dialect.LimitClause(limit, 0)

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	shares := make([]EmailShare, 0, limit)
	for rows.Next() {
		share, err := scanEmailShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, *share)
	}
	return shares, rows.Err()
}

// EmailShareReturnIDs reports the returns a share covered.
func (s *Storage) EmailShareReturnIDs(shareID int64) ([]int64, error) {
	query := fmt.Sprintf(
		`SELECT return_id FROM email_share_items WHERE email_share_id = %s ORDER BY return_id`,
		s.dialect.Placeholder(1))

	rows, err := s.db.Query(query, shareID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
