package query

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/engine/impl/histogram"
	"context"
	"database/sql"
	"fmt"
	"time"
)

// sqliteQuerier implements the Querier interface over the database written by the sqlite writer.
type sqliteQuerier struct {
	db *sql.DB
}

// NewSQLiteQuerier opens the configured database.
func NewSQLiteQuerier(cfg config.SQLiteConfig) (Querier, error) {
	db, err := histogram.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, err
	}
	return &sqliteQuerier{db: db}, nil
}

func (q *sqliteQuerier) TopAddresses(ctx context.Context, tq TopQuery) (*TopResponse, error) {
	tq, err := tq.normalize()
	if err != nil {
		return nil, err
	}

	var latest sql.NullString
	err = q.db.QueryRowContext(ctx, `
		SELECT MAX(timestamp) FROM address_histogram
		WHERE task_name = ? AND timestamp <= ?`,
		tq.TaskName, tq.EndTime.UTC().Format(time.RFC3339)).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to find latest snapshot: %w", err)
	}
	if !latest.Valid {
		return nil, ErrNotFound
	}
	ts, err := time.Parse(time.RFC3339, latest.String)
	if err != nil {
		return nil, fmt.Errorf("invalid stored timestamp %q: %w", latest.String, err)
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT relationship, rank, address, count, total_count, distinct_addresses
		FROM address_histogram
		WHERE task_name = ? AND timestamp = ?
		ORDER BY rank
		LIMIT ?`, tq.TaskName, latest.String, tq.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	resp := &TopResponse{TaskName: tq.TaskName, Timestamp: ts}
	for rows.Next() {
		var e TopEntry
		var count, total, distinct int64
		if err := rows.Scan(&resp.Relationship, &e.Rank, &e.Address, &count, &total, &distinct); err != nil {
			return nil, fmt.Errorf("failed to scan top entry: %w", err)
		}
		e.Count = uint64(count)
		e.Family = addressFamily(e.Address)
		resp.TotalCount, resp.Distinct = uint64(total), uint64(distinct)
		resp.Entries = append(resp.Entries, e)
	}
	return resp, rows.Err()
}

func (q *sqliteQuerier) Tasks(ctx context.Context) ([]TaskInfo, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT task_name, MAX(relationship), COUNT(DISTINCT timestamp), MAX(timestamp)
		FROM address_histogram
		GROUP BY task_name
		ORDER BY task_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var tasks []TaskInfo
	for rows.Next() {
		var t TaskInfo
		var last string
		if err := rows.Scan(&t.TaskName, &t.Relationship, &t.Snapshots, &last); err != nil {
			return nil, fmt.Errorf("failed to scan task summary: %w", err)
		}
		if t.LastSnapshot, err = time.Parse(time.RFC3339, last); err != nil {
			return nil, fmt.Errorf("invalid stored timestamp %q: %w", last, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (q *sqliteQuerier) Close() error {
	return q.db.Close()
}
