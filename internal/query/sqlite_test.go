package query

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/engine/impl/histogram"
	"context"
	"errors"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(counts map[string]uint64) histogram.Snapshot {
	h := histogram.NewHistogram(histogram.Source)
	for addr, n := range counts {
		h.Add(netip.MustParseAddr(addr), n)
	}
	return histogram.Snapshot{
		TaskName:     "sources",
		Relationship: "src",
		Top:          histogram.FromSource(h, 3),
		Distinct:     uint64(h.Len()),
	}
}

func TestSQLiteQuerier(t *testing.T) {
	cfg := config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "hist.db")}
	w, err := histogram.NewSQLiteWriter(cfg, time.Minute)
	require.NoError(t, err)

	require.NoError(t, w.Write(snapshot(map[string]uint64{"10.0.0.1": 5, "10.0.0.2": 1}), "2024-05-01_10-00-00"))
	require.NoError(t, w.Write(snapshot(map[string]uint64{"10.0.0.2": 9, "2001:db8::1": 4, "10.0.0.3": 1, "10.0.0.4": 1}), "2024-05-01_11-00-00"))
	require.NoError(t, w.(*histogram.SQLiteWriter).Close())

	q, err := NewSQLiteQuerier(cfg)
	require.NoError(t, err)
	defer q.Close()
	ctx := context.Background()

	latest, err := q.TopAddresses(ctx, TopQuery{TaskName: "sources"})
	require.NoError(t, err)
	require.Len(t, latest.Entries, 3)
	assert.Equal(t, "10.0.0.2", latest.Entries[0].Address)
	assert.Equal(t, uint64(9), latest.Entries[0].Count)
	assert.Equal(t, "ipv4", latest.Entries[0].Family)
	assert.Equal(t, "2001:0db8:0000:0000:0000:0000:0000:0001", latest.Entries[1].Address)
	assert.Equal(t, "ipv6", latest.Entries[1].Family)
	assert.Equal(t, uint64(15), latest.TotalCount)
	assert.Equal(t, "src", latest.Relationship)

	earlier, err := q.TopAddresses(ctx, TopQuery{
		TaskName: "sources",
		EndTime:  time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		Limit:    1,
	})
	require.NoError(t, err)
	require.Len(t, earlier.Entries, 1)
	assert.Equal(t, "10.0.0.1", earlier.Entries[0].Address)
	assert.Equal(t, 10, earlier.Timestamp.Hour())

	_, err = q.TopAddresses(ctx, TopQuery{TaskName: "sources", EndTime: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = q.TopAddresses(ctx, TopQuery{})
	assert.Error(t, err)

	tasks, err := q.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "sources", tasks[0].TaskName)
	assert.Equal(t, uint64(2), tasks[0].Snapshots)
	assert.Equal(t, 11, tasks[0].LastSnapshot.Hour())
}
