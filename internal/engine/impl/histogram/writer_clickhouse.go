package histogram

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/model"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// TimestampLayout is the format of the snapshot timestamps handed to writers.
const TimestampLayout = "2006-01-02_15-04-05"

const createTableStatement = `
CREATE TABLE IF NOT EXISTS address_histogram (
    Timestamp    DateTime,
    TaskName     String,
    Relationship String,
    Rank         UInt32,
    Address      String,
    Count        UInt64,
    TotalCount   UInt64,
    DistinctAddresses UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (TaskName, Timestamp, Rank);
`

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn     driver.Conn
	interval time.Duration
}

// NewClickHouseWriter connects to ClickHouse and makes sure the table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig, interval time.Duration) (model.Writer, error) {
	conn, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn, interval: interval}, nil
}

// GetInterval returns the configured snapshot interval for this writer.
func (w *ClickHouseWriter) GetInterval() time.Duration {
	return w.interval
}

// Connect opens and pings a ClickHouse connection.
func Connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Write inserts one row per filled slot of the top list.
func (w *ClickHouseWriter) Write(payload any, timestamp string) error {
	snapshot, ok := payload.(Snapshot)
	if !ok {
		return fmt.Errorf("invalid payload type for ClickHouse Writer: expected histogram.Snapshot, got %T", payload)
	}
	rows := Rows(snapshot, timestamp)
	if len(rows) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO address_histogram")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, r := range rows {
		err = batch.Append(r.Timestamp, r.TaskName, r.Relationship, r.Rank, r.Address, r.Count, r.TotalCount, r.Distinct)
		if err != nil {
			return fmt.Errorf("failed to append row to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d ranked addresses to ClickHouse for task '%s'", len(rows), snapshot.TaskName)
	return nil
}

// Row is one slot of a persisted top list.
type Row struct {
	Timestamp    time.Time
	TaskName     string
	Relationship string
	Rank         uint32
	Address      string
	Count        uint64
	TotalCount   uint64
	Distinct     uint64
}

// Rows flattens the filled slots of a snapshot's top list. Padding slots are not stored.
func Rows(snapshot Snapshot, timestamp string) []Row {
	snapshotTime, err := time.Parse(TimestampLayout, timestamp)
	if err != nil {
		snapshotTime = time.Now().UTC()
	}

	rows := make([]Row, 0, len(snapshot.Top.Entries))
	for i, e := range snapshot.Top.Entries {
		if e.IsEmpty() {
			break
		}
		rows = append(rows, Row{
			Timestamp:    snapshotTime,
			TaskName:     snapshot.TaskName,
			Relationship: snapshot.Relationship,
			Rank:         uint32(i + 1),
			Address:      e.Key,
			Count:        e.Count,
			TotalCount:   snapshot.Top.TotalCount,
			Distinct:     snapshot.Distinct,
		})
	}
	return rows
}
