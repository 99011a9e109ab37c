package histogram

import (
	"database/sql"
	"encoding/json"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"AddrSpectra/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimestamp = "2024-05-01_12-00-00"

func sampleSnapshot() Snapshot {
	h := NewHistogram(Destination)
	h.Add(netip.MustParseAddr("10.0.0.1"), 7)
	h.Add(netip.MustParseAddr("2001:db8::1"), 3)
	h.Add(netip.MustParseAddr("10.0.0.2"), 1)

	entries := Ranked(h)
	return Snapshot{
		TaskName:     "dst_top",
		Relationship: "dst",
		Backend:      "map",
		Top:          Reduce(entries, 4),
		Entries:      entries,
		Distinct:     3,
	}
}

func TestGobWriter_RoundTrip(t *testing.T) {
	root := t.TempDir()
	w := NewGobWriter(root, 0)
	require.NoError(t, w.Write(sampleSnapshot(), testTimestamp))

	entries, err := ReadGobEntries(root, testTimestamp, "dst_top")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), entries[0].Addr)
	assert.Equal(t, uint64(7), entries[0].Count)

	data, err := os.ReadFile(filepath.Join(root, testTimestamp, "dst_top", summaryFileName))
	require.NoError(t, err)
	var summary SummaryData
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, uint64(11), summary.TotalCount)
	assert.Equal(t, "10.0.0.1", summary.TopAddress)
	assert.Equal(t, 3, summary.Keys)
}

func TestGobWriter_EmptySnapshotWritesNothing(t *testing.T) {
	root := t.TempDir()
	w := NewGobWriter(root, 0)
	require.NoError(t, w.Write(Snapshot{TaskName: "empty", Top: Reduce(nil, 3)}, testTimestamp))

	_, err := os.Stat(filepath.Join(root, testTimestamp))
	assert.True(t, os.IsNotExist(err))
}

func TestWriters_RejectForeignPayload(t *testing.T) {
	root := t.TempDir()
	for _, w := range []interface {
		Write(any, string) error
	}{
		NewGobWriter(root, 0),
		NewTextWriter(root, 0),
		NewChartWriter(root, "png", 0),
	} {
		assert.Error(t, w.Write("not a snapshot", testTimestamp))
	}
}

func TestTextWriter(t *testing.T) {
	root := t.TempDir()
	w := NewTextWriter(root, 0)
	require.NoError(t, w.Write(sampleSnapshot(), testTimestamp))

	data, err := os.ReadFile(filepath.Join(root, testTimestamp, "dst_top", "top.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, []string{
		"1 10.0.0.1 7",
		"2 2001:0db8:0000:0000:0000:0000:0000:0001 3",
		"3 10.0.0.2 1",
		"total 11",
	}, lines)
}

func TestChartWriter(t *testing.T) {
	root := t.TempDir()
	w := NewChartWriter(root, "svg", 0)
	require.NoError(t, w.Write(sampleSnapshot(), testTimestamp))

	info, err := os.Stat(filepath.Join(root, testTimestamp, "dst_top.svg"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestChartBars(t *testing.T) {
	bars := ChartBars(sampleSnapshot().Top)
	require.Len(t, bars, 4)
	assert.Equal(t, "10.0.0.1", bars[0].Label)
	assert.Equal(t, uint64(7), bars[0].Count)
	assert.Empty(t, bars[3].Label)
}

func TestRows_SkipPadding(t *testing.T) {
	rows := Rows(sampleSnapshot(), testTimestamp)
	require.Len(t, rows, 3)
	assert.Equal(t, uint32(1), rows[0].Rank)
	assert.Equal(t, uint64(11), rows[2].TotalCount)
	assert.Equal(t, 2024, rows[0].Timestamp.Year())
}

func TestSQLiteWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "histogram.db")
	w, err := NewSQLiteWriter(config.SQLiteConfig{Path: path}, 0)
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleSnapshot(), testTimestamp))
	require.NoError(t, w.(*SQLiteWriter).Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	var top string
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM address_histogram WHERE task_name = ?`, "dst_top").Scan(&n))
	require.NoError(t, db.QueryRow(`SELECT address FROM address_histogram WHERE rank = 1`).Scan(&top))
	assert.Equal(t, 3, n)
	assert.Equal(t, "10.0.0.1", top)
}
