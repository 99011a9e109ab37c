package histogram

import (
	"AddrSpectra/internal/model"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	entriesFileName = "entries.dat"
	summaryFileName = "summary.json"
)

// SummaryData holds the metadata for a snapshot, internal to the writer.
type SummaryData struct {
	TaskName     string `json:"task_name"`
	Relationship string `json:"relationship"`
	Backend      string `json:"backend"`
	TotalCount   uint64 `json:"total_count"`
	Keys         int    `json:"keys"`
	Distinct     uint64 `json:"distinct_addresses"`
	TopAddress   string `json:"top_address,omitempty"`
	TopCount     uint64 `json:"top_count"`
	Timestamp    string `json:"timestamp"`
}

// GobWriter writes every entry of a snapshot to disk in gob format, plus a JSON summary.
// It implements the model.Writer interface.
type GobWriter struct {
	rootPath string
	interval time.Duration
}

// NewGobWriter creates a new gob writer rooted at rootPath.
func NewGobWriter(rootPath string, interval time.Duration) model.Writer {
	return &GobWriter{rootPath: rootPath, interval: interval}
}

// GetInterval returns the configured snapshot interval for this writer.
func (w *GobWriter) GetInterval() time.Duration {
	return w.interval
}

// Write stores the snapshot under <root>/<timestamp>/<task>/.
// Empty snapshots produce no files.
func (w *GobWriter) Write(payload any, timestamp string) error {
	snapshot, ok := payload.(Snapshot)
	if !ok {
		return fmt.Errorf("invalid payload type for GobWriter: expected histogram.Snapshot, got %T", payload)
	}
	if len(snapshot.Entries) == 0 {
		return nil
	}

	taskDir := filepath.Join(w.rootPath, timestamp, snapshot.TaskName)
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	filePath := filepath.Join(taskDir, entriesFileName)
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", filePath, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(snapshot.Entries); err != nil {
		return fmt.Errorf("failed to encode entries to gob for file '%s': %w", filePath, err)
	}

	summary := SummaryData{
		TaskName:     snapshot.TaskName,
		Relationship: snapshot.Relationship,
		Backend:      snapshot.Backend,
		TotalCount:   snapshot.Top.TotalCount,
		Keys:         len(snapshot.Entries),
		Distinct:     snapshot.Distinct,
		TopAddress:   snapshot.Entries[0].Key,
		TopCount:     snapshot.Entries[0].Count,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	summaryFile, err := os.Create(filepath.Join(taskDir, summaryFileName))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}

// ReadGobEntries loads the entries written by GobWriter for one task.
func ReadGobEntries(rootPath, timestamp, taskName string) ([]Entry, error) {
	filePath := filepath.Join(rootPath, timestamp, taskName, entriesFileName)
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file '%s': %w", filePath, err)
	}
	defer file.Close()

	var entries []Entry
	if err := gob.NewDecoder(file).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode entries from '%s': %w", filePath, err)
	}
	return entries, nil
}
