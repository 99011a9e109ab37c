package histogram

import (
	"AddrSpectra/internal/model"
	"AddrSpectra/internal/render"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ChartBars converts a top list into render slots, padding slots included.
func ChartBars(top TopN) []render.Bar {
	bars := make([]render.Bar, len(top.Entries))
	for i, e := range top.Entries {
		bars[i] = render.Bar{Label: e.Key, Count: e.Count}
	}
	return bars
}

// ChartWriter renders the top list of a snapshot as a bar chart image.
type ChartWriter struct {
	rootPath string
	format   string
	interval time.Duration
}

// NewChartWriter creates a chart writer producing png (default) or svg files.
func NewChartWriter(rootPath, format string, interval time.Duration) model.Writer {
	if format != "svg" {
		format = "png"
	}
	return &ChartWriter{rootPath: rootPath, format: format, interval: interval}
}

func (w *ChartWriter) GetInterval() time.Duration {
	return w.interval
}

// Write renders the snapshot to <root>/<timestamp>/<task>.<format> using the task's layout.
// A task configured with zero bars produces no file.
func (w *ChartWriter) Write(payload any, timestamp string) error {
	snapshot, ok := payload.(Snapshot)
	if !ok {
		return fmt.Errorf("invalid payload type for ChartWriter: expected histogram.Snapshot, got %T", payload)
	}
	if len(snapshot.Top.Entries) == 0 {
		return nil
	}

	layout := render.LayoutFromConfig(snapshot.Layout, w.format)
	if layout.Width <= 0 || layout.Height <= 0 {
		quick := render.QuickLayout("", "")
		layout.Width, layout.Height = quick.Width, quick.Height
	}
	if layout.Title == "" {
		layout.Title = snapshot.TaskName
	}
	if layout.Subtitle == "" {
		layout.Subtitle = fmt.Sprintf("%s addresses, total %d", snapshot.Relationship, snapshot.Top.TotalCount)
	}

	dir := filepath.Join(w.rootPath, timestamp)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	filePath := filepath.Join(dir, snapshot.TaskName+"."+layout.Extension())
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create chart file '%s': %w", filePath, err)
	}
	defer file.Close()

	if err := render.Render(file, ChartBars(snapshot.Top), layout); err != nil {
		return fmt.Errorf("failed to render chart for task '%s': %w", snapshot.TaskName, err)
	}
	return nil
}
