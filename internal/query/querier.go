package query

import (
	"AddrSpectra/internal/engine/impl/histogram"
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no snapshot of the task exists at or before the requested time.
var ErrNotFound = errors.New("no snapshot found")

const defaultLimit = 10

// TopQuery selects the ranked list of one task.
type TopQuery struct {
	TaskName string    `json:"task_name"`
	EndTime  time.Time `json:"end_time"` // zero means now
	Limit    int       `json:"limit"`
}

// TopEntry is one ranked address.
type TopEntry struct {
	Rank    uint32 `json:"rank"`
	Address string `json:"address"`
	Family  string `json:"family"` // ipv4 or ipv6
	Count   uint64 `json:"count"`
}

// TopResponse is the latest stored top list of a task at or before the query's end time.
type TopResponse struct {
	TaskName     string     `json:"task_name"`
	Relationship string     `json:"relationship"`
	Timestamp    time.Time  `json:"timestamp"`
	TotalCount   uint64     `json:"total_count"`
	Distinct     uint64     `json:"distinct_addresses"`
	Entries      []TopEntry `json:"entries"`
}

// TaskInfo summarizes what is stored for one task.
type TaskInfo struct {
	TaskName     string    `json:"task_name"`
	Relationship string    `json:"relationship"`
	Snapshots    uint64    `json:"snapshots"`
	LastSnapshot time.Time `json:"last_snapshot"`
}

// Querier defines the interface for querying stored top lists.
type Querier interface {
	TopAddresses(ctx context.Context, q TopQuery) (*TopResponse, error)
	Tasks(ctx context.Context) ([]TaskInfo, error)
	Close() error
}

// addressFamily reports the family of a stored key, or "" when the key does not parse.
func addressFamily(key string) string {
	addr, err := histogram.ParseKey(key)
	switch {
	case err != nil:
		return ""
	case addr.Is4():
		return "ipv4"
	default:
		return "ipv6"
	}
}

func (q TopQuery) normalize() (TopQuery, error) {
	if q.TaskName == "" {
		return q, errors.New("task_name is required")
	}
	if q.EndTime.IsZero() {
		q.EndTime = time.Now()
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	return q, nil
}
