package histogram

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/model"
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSchema creates the address_histogram table in SQLite.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS address_histogram (
	timestamp    TEXT NOT NULL, -- RFC 3339, UTC
	task_name    TEXT NOT NULL,
	relationship TEXT NOT NULL,
	rank         INTEGER NOT NULL,
	address      TEXT NOT NULL,
	count        INTEGER NOT NULL,
	total_count  INTEGER NOT NULL,
	distinct_addresses INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_address_histogram_task_time ON address_histogram(task_name, timestamp);
`

// SQLiteWriter stores top lists in a local SQLite database.
type SQLiteWriter struct {
	db       *sql.DB
	interval time.Duration
}

// OpenSQLite opens the database at path and applies the schema.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(SQLiteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// NewSQLiteWriter opens the configured database and returns a writer over it.
func NewSQLiteWriter(cfg config.SQLiteConfig, interval time.Duration) (model.Writer, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	db, err := OpenSQLite(cfg.Path)
	if err != nil {
		return nil, err
	}
	log.Printf("Opened SQLite database at %s", cfg.Path)
	return &SQLiteWriter{db: db, interval: interval}, nil
}

func (w *SQLiteWriter) GetInterval() time.Duration {
	return w.interval
}

// Write inserts one row per filled slot inside a single transaction.
func (w *SQLiteWriter) Write(payload any, timestamp string) error {
	snapshot, ok := payload.(Snapshot)
	if !ok {
		return fmt.Errorf("invalid payload type for SQLiteWriter: expected histogram.Snapshot, got %T", payload)
	}
	rows := Rows(snapshot, timestamp)
	if len(rows) == 0 {
		return nil
	}

	ctx := context.Background()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO address_histogram
		(timestamp, task_name, relationship, rank, address, count, total_count, distinct_addresses)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx, r.Timestamp.UTC().Format(time.RFC3339), r.TaskName, r.Relationship,
			r.Rank, r.Address, int64(r.Count), int64(r.TotalCount), int64(r.Distinct))
		if err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
