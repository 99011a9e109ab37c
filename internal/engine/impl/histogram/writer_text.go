package histogram

import (
	"AddrSpectra/internal/model"
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// TextWriter writes the ranked top list of a snapshot as plain text.
type TextWriter struct {
	rootPath string
	interval time.Duration
}

// NewTextWriter creates a new text writer rooted at rootPath.
func NewTextWriter(rootPath string, interval time.Duration) model.Writer {
	return &TextWriter{rootPath: rootPath, interval: interval}
}

func (w *TextWriter) GetInterval() time.Duration {
	return w.interval
}

// Write produces <root>/<timestamp>/<task>/top.txt with one "rank address count" line per
// filled slot followed by a "total" line.
func (w *TextWriter) Write(payload any, timestamp string) error {
	snapshot, ok := payload.(Snapshot)
	if !ok {
		return fmt.Errorf("invalid payload type for TextWriter: expected histogram.Snapshot, got %T", payload)
	}

	taskDir := filepath.Join(w.rootPath, timestamp, snapshot.TaskName)
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	filePath := filepath.Join(taskDir, "top.txt")
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", filePath, err)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	written := 0
	for i, e := range snapshot.Top.Entries {
		if e.IsEmpty() {
			break
		}
		fmt.Fprintf(buf, "%d %s %d\n", i+1, e.Key, e.Count)
		written++
	}
	fmt.Fprintf(buf, "total %d\n", snapshot.Top.TotalCount)
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to write top list to file: %w", err)
	}

	log.Printf("Successfully wrote %d ranked addresses to %s\n", written, filePath)
	return nil
}
