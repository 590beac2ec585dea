package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the embedded sqlite store. It is the only component in
// the agent with durable state; everything else reads and writes through
// the repositories built on top of it.
type Database struct {
	db *sql.DB
}

// Open opens (or creates) the database at the given DSN and ensures the
// schema exists. It is idempotent: re-opening an existing database re-runs
// the create-if-absent schema and succeeds.
func Open(dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Verify we can actually connect to the database
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("ping failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	if err := createSchema(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("create schema failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	return &Database{db: db}, nil
}

// createSchema creates the four tables and their indexes. Every statement
// is create-if-absent so the whole block is safe to re-run.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			message TEXT,
			severity TEXT NOT NULL,
			status TEXT NOT NULL,
			issued_at INTEGER NOT NULL,
			requires_response INTEGER NOT NULL DEFAULT 0,
			response_options TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS user_responses (
			id TEXT PRIMARY KEY,
			alert_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			response TEXT NOT NULL,
			latitude REAL,
			longitude REAL,
			accuracy REAL,
			responded_at INTEGER NOT NULL,
			synced_at INTEGER
		);

		CREATE TABLE IF NOT EXISTS call_logs (
			id TEXT PRIMARY KEY,
			alert_id TEXT,
			hotline_number TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			duration_seconds INTEGER,
			recording_url TEXT,
			status TEXT NOT NULL,
			synced_at INTEGER
		);

		CREATE TABLE IF NOT EXISTS sync_queue (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
		CREATE INDEX IF NOT EXISTS idx_alerts_severity ON alerts(severity);
		CREATE INDEX IF NOT EXISTS idx_responses_alert_id ON user_responses(alert_id);
		CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status);
	`

	_, err := db.Exec(schema)
	return err
}

// GetDB exposes the underlying handle for the repositories
func (d *Database) GetDB() *sql.DB {
	if d == nil {
		return nil
	}
	return d.db
}

// Close closes the database
func (d *Database) Close() error {
	if d == nil {
		return errors.New("database is nil")
	}

	if d.db == nil {
		return errors.New("database already closed")
	}

	err := d.db.Close()
	d.db = nil
	return err
}
