// Package storage persists synced Warehance entities and serves the
// read models behind the dashboard, export, and analytics endpoints.
// It speaks two SQL dialects (SQLite and PostgreSQL) through the
// Dialect interface.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Storage provides database access for all persisted entities.
type Storage struct {
	db      *sql.DB
	dialect Dialect
}

// Open creates a storage instance for the given driver ("sqlite" or
// "postgres") and DSN, and runs all pending migrations.
func Open(driver, dsn string) (*Storage, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Name(), dsn)
	if err != nil {
		return nil, err
	}

	if dialect.Name() == "sqlite3" {
		// Enable foreign key constraints (SQLite-specific)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	s := &Storage{db: db, dialect: dialect}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Dialect returns the active SQL dialect.
func (s *Storage) Dialect() Dialect {
	return s.dialect
}
