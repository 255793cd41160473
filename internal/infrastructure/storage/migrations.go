package storage

import (
	"database/sql"
	"fmt"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx, Dialect) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_sync_logs_table",
		Up:      migration002AddSyncLogsTable,
	},
	{
		Version: 3,
		Name:    "add_email_shares_tables",
		Up:      migration003AddEmailSharesTables,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx, s.dialect); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(fmt.Sprintf(
			"INSERT INTO schema_migrations (version, name) VALUES (%s, %s)",
			s.dialect.Placeholder(1), s.dialect.Placeholder(2),
		), migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// migration001InitialSchema creates the synced entity tables. External
// ids are the primary keys; the store never mints surrogate keys for
// synced entities.
func migration001InitialSchema(tx *sql.Tx, d Dialect) error {
	statements := []string{
		`CREATE TABLE clients (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE warehouses (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE stores (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE return_integrations (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			return_integration_type TEXT,
			store_id BIGINT REFERENCES stores(id)
		)`,
		`CREATE TABLE orders (
			id BIGINT PRIMARY KEY,
			order_number TEXT NOT NULL,
			customer_name TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE order_items (
			id BIGINT PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id),
			product_id BIGINT,
			sku TEXT,
			name TEXT,
			quantity INTEGER DEFAULT 0,
			quantity_shipped INTEGER DEFAULT 0,
			unit_price NUMERIC(10,2) DEFAULT 0,
			bundle_order_item_id BIGINT
		)`,
		`CREATE TABLE products (
			id BIGINT PRIMARY KEY,
			sku TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE returns (
			id BIGINT PRIMARY KEY,
			api_id TEXT,
			paid_by TEXT,
			status TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP,
			processed BOOLEAN DEFAULT FALSE,
			processed_at TIMESTAMP,
			warehouse_note TEXT,
			customer_note TEXT,
			tracking_number TEXT,
			tracking_url TEXT,
			carrier TEXT,
			service TEXT,
			label_cost NUMERIC(10,2),
			label_pdf_url TEXT,
			rma_slip_url TEXT,
			label_voided BOOLEAN DEFAULT FALSE,
			client_id BIGINT REFERENCES clients(id),
			warehouse_id BIGINT REFERENCES warehouses(id),
			order_id BIGINT REFERENCES orders(id),
			return_integration_id BIGINT REFERENCES return_integrations(id),
			first_synced_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_synced_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE return_items (
			id BIGINT PRIMARY KEY,
			return_id BIGINT NOT NULL REFERENCES returns(id) ON DELETE CASCADE,
			product_id BIGINT REFERENCES products(id),
			quantity INTEGER DEFAULT 0,
			quantity_ordered INTEGER DEFAULT 0,
			quantity_received INTEGER DEFAULT 0,
			quantity_rejected INTEGER DEFAULT 0,
			return_reasons TEXT,
			condition_on_arrival TEXT,
			is_proxy BOOLEAN DEFAULT FALSE
		)`,
		`CREATE INDEX idx_returns_client_id ON returns(client_id)`,
		`CREATE INDEX idx_returns_status ON returns(status)`,
		`CREATE INDEX idx_returns_created_at ON returns(created_at)`,
		`CREATE INDEX idx_returns_processed ON returns(processed)`,
		`CREATE INDEX idx_return_items_return_id ON return_items(return_id)`,
		`CREATE INDEX idx_return_items_product_id ON return_items(product_id)`,
		`CREATE INDEX idx_order_items_order_id ON order_items(order_id)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migration002AddSyncLogsTable(tx *sql.Tx, d Dialect) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE sync_logs (
			id %s,
			sync_type TEXT DEFAULT 'full',
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP,
			status TEXT DEFAULT 'running',
			total_pages INTEGER DEFAULT 0,
			total_fetched INTEGER DEFAULT 0,
			created_count INTEGER DEFAULT 0,
			updated_count INTEGER DEFAULT 0,
			skipped_count INTEGER DEFAULT 0,
			error_message TEXT,
			current_phase TEXT DEFAULT 'initializing',
			total_to_process INTEGER DEFAULT 0,
			processed_count INTEGER DEFAULT 0,
			current_operation TEXT,
			last_progress_update TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, d.SerialPK()),
		`CREATE INDEX idx_sync_logs_status ON sync_logs(status)`,
		`CREATE INDEX idx_sync_logs_started_at ON sync_logs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migration003AddEmailSharesTables(tx *sql.Tx, d Dialect) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE email_shares (
			id %s,
			client_id BIGINT NOT NULL REFERENCES clients(id),
			recipient_email TEXT,
			subject TEXT,
			date_range_start TIMESTAMP NOT NULL,
			date_range_end TIMESTAMP NOT NULL,
			total_returns_shared INTEGER DEFAULT 0,
			share_status TEXT DEFAULT 'pending',
			sent_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, d.SerialPK()),
		`CREATE TABLE email_share_items (
			email_share_id BIGINT NOT NULL REFERENCES email_shares(id) ON DELETE CASCADE,
			return_id BIGINT NOT NULL REFERENCES returns(id),
			PRIMARY KEY (email_share_id, return_id)
		)`,
		`CREATE INDEX idx_email_shares_client_id ON email_shares(client_id)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
