package query

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/engine/impl/histogram"
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := histogram.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

// TopAddresses returns the rows of the latest snapshot at or before q.EndTime.
func (q *clickhouseQuerier) TopAddresses(ctx context.Context, tq TopQuery) (*TopResponse, error) {
	tq, err := tq.normalize()
	if err != nil {
		return nil, err
	}

	var latest time.Time
	row := q.conn.QueryRow(ctx, `
		SELECT max(Timestamp)
		FROM address_histogram
		WHERE TaskName = ? AND Timestamp <= ?`, tq.TaskName, tq.EndTime)
	if err := row.Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to find latest snapshot: %w", err)
	}
	// max() over no rows yields the epoch.
	if latest.Unix() <= 0 {
		return nil, ErrNotFound
	}

	rows, err := q.conn.Query(ctx, `
		SELECT Relationship, Rank, Address, Count, TotalCount, DistinctAddresses
		FROM address_histogram
		WHERE TaskName = ? AND Timestamp = ?
		ORDER BY Rank
		LIMIT ?`, tq.TaskName, latest, tq.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	resp := &TopResponse{TaskName: tq.TaskName, Timestamp: latest}
	for rows.Next() {
		var e TopEntry
		if err := rows.Scan(&resp.Relationship, &e.Rank, &e.Address, &e.Count, &resp.TotalCount, &resp.Distinct); err != nil {
			return nil, fmt.Errorf("failed to scan top entry: %w", err)
		}
		e.Family = addressFamily(e.Address)
		resp.Entries = append(resp.Entries, e)
	}
	return resp, rows.Err()
}

// Tasks lists every task with stored snapshots.
func (q *clickhouseQuerier) Tasks(ctx context.Context) ([]TaskInfo, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT TaskName, any(Relationship), uniqExact(Timestamp), max(Timestamp)
		FROM address_histogram
		GROUP BY TaskName
		ORDER BY TaskName`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var tasks []TaskInfo
	for rows.Next() {
		var t TaskInfo
		if err := rows.Scan(&t.TaskName, &t.Relationship, &t.Snapshots, &t.LastSnapshot); err != nil {
			return nil, fmt.Errorf("failed to scan task summary: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (q *clickhouseQuerier) Close() error {
	return q.conn.Close()
}
