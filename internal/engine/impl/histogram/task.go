package histogram

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/engine/impl/iptree"
	"AddrSpectra/internal/engine/impl/sketch/statistic"
	"AddrSpectra/internal/factory"
	"AddrSpectra/internal/model"
	"fmt"
	"log"
	"net/netip"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/axiomhq/hyperloglog"
)

// --- Factory Registration ---

func init() {
	factory.RegisterAggregator("histogram", func(cfg *config.Config) (*factory.TaskGroup, error) {
		histCfg := cfg.Aggregator.Histogram

		writers := make([]model.Writer, 0, len(histCfg.Writers))
		for _, writerDef := range histCfg.Writers {
			if !writerDef.Enabled {
				continue
			}

			interval, err := time.ParseDuration(writerDef.SnapshotInterval)
			if err != nil {
				log.Printf("Warning: invalid snapshot_interval for writer type '%s': %v, skipping.", writerDef.Type, err)
				continue
			}

			var writer model.Writer
			switch writerDef.Type {
			case "gob":
				writer = NewGobWriter(writerDef.Gob.RootPath, interval)
			case "text":
				writer = NewTextWriter(writerDef.Text.RootPath, interval)
			case "chart":
				writer = NewChartWriter(writerDef.Chart.RootPath, writerDef.Chart.Format, interval)
			case "clickhouse":
				writer, err = NewClickHouseWriter(writerDef.ClickHouse, interval)
			case "sqlite":
				writer, err = NewSQLiteWriter(writerDef.SQLite, interval)
			default:
				log.Printf("Warning: unknown writer type '%s' in config, skipping.", writerDef.Type)
				continue
			}
			if err != nil {
				log.Printf("Warning: failed to create writer type '%s': %v, skipping.", writerDef.Type, err)
				continue
			}
			writers = append(writers, writer)
		}

		tasks := make([]model.Task, 0, len(histCfg.Tasks))
		for _, taskCfg := range histCfg.Tasks {
			task, err := New(taskCfg)
			if err != nil {
				return nil, fmt.Errorf("task '%s': %w", taskCfg.Name, err)
			}
			tasks = append(tasks, task)
		}

		return &factory.TaskGroup{Tasks: tasks, Writers: writers}, nil
	})
}

// --- Task Implementation ---

// Snapshot is the payload a histogram task hands to its writers.
type Snapshot struct {
	TaskName     string
	Relationship string
	Backend      string
	// Top is the fixed-width ranked list; Top.TotalCount covers every counted key.
	Top TopN
	// Entries is every exported entry in rank order.
	Entries  []Entry
	Distinct uint64
	Layout   config.LayoutConfig
}

// Task counts the addresses of every packet it sees into one counter backend.
// It implements the model.Task interface.
type Task struct {
	name      string
	backend   string
	maxBars   int
	layout    config.LayoutConfig
	extractor Extractor

	mu       sync.Mutex
	counter  Counter
	ingest   func(network []byte) []netip.Addr
	distinct *hyperloglog.Sketch
}

// New creates a histogram task from its config definition.
func New(def config.HistogramTaskDef) (*Task, error) {
	rel, err := ParseRelationship(def.Relationship)
	if err != nil {
		return nil, err
	}

	var counter Counter
	switch def.Backend {
	case "", "map":
		counter = NewHistogram(rel)
	case "iptree":
		counter = iptree.New()
	case "countmin":
		counter = statistic.NewCountMin(def.Sketch.Width, def.Sketch.Depth, def.Sketch.Threshold)
	default:
		return nil, fmt.Errorf("unknown backend: '%s'", def.Backend)
	}

	backend := def.Backend
	if backend == "" {
		backend = "map"
	}
	log.Printf("Creating HistogramTask '%s' (%s, %s backend, %d bars)", def.Name, rel, backend, def.MaxBars)

	t := &Task{
		name:      def.Name,
		backend:   backend,
		maxBars:   def.MaxBars,
		layout:    def.Layout,
		extractor: NewExtractor(rel),
		counter:   counter,
		distinct:  hyperloglog.New14(),
	}
	if h, ok := counter.(*Histogram); ok {
		t.ingest = h.Ingest
	} else {
		t.ingest = func(network []byte) []netip.Addr {
			return ingest(t.counter, t.extractor, network)
		}
	}
	return t, nil
}

// Name returns the name of the task.
func (t *Task) Name() string {
	return t.name
}

// ProcessPacket counts the addresses selected by the task's relationship.
// Packets that are neither IPv4 nor IPv6 are ignored.
func (t *Task) ProcessPacket(packetInfo *model.PacketInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, addr := range t.ingest(packetInfo.Network) {
		t.distinct.Insert(addr.AsSlice())
	}
}

// Snapshot returns an independent copy of the current ranking.
func (t *Task) Snapshot() any {
	t.mu.Lock()
	entries := Ranked(t.counter)
	total := t.counter.Sum()
	distinct := t.distinct.Estimate()
	t.mu.Unlock()

	return Snapshot{
		TaskName:     t.name,
		Relationship: t.extractor.Relationship().String(),
		Backend:      t.backend,
		Top:          reduce(slices.Clone(entries), total, t.maxBars),
		Entries:      entries,
		Distinct:     distinct,
		Layout:       t.layout,
	}
}

// Reset clears the counter and the distinct estimate for a new measurement period.
func (t *Task) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counter.Reset()
	t.distinct = hyperloglog.New14()
}

// AlerterMsg evaluates rules against the task's current ranking and returns a markdown
// fragment describing every rule that fired.
func (t *Task) AlerterMsg(rules []config.AlerterRule) string {
	snapshot, ok := t.Snapshot().(Snapshot)
	if !ok {
		return ""
	}

	var topCount uint64
	topAddr := "-"
	if len(snapshot.Top.Entries) > 0 && !snapshot.Top.Entries[0].IsEmpty() {
		topCount = snapshot.Top.Entries[0].Count
		topAddr = snapshot.Top.Entries[0].Key
	}
	var topShare float64
	if snapshot.Top.TotalCount > 0 {
		topShare = float64(topCount) * 100 / float64(snapshot.Top.TotalCount)
	}

	var triggeredMessages []string
	for _, rule := range rules {
		if rule.TaskName != t.name {
			continue
		}

		var currentValue float64
		var unit string
		switch rule.Metric {
		case "total_count":
			currentValue, unit = float64(snapshot.Top.TotalCount), "counts"
		case "distinct_addresses":
			currentValue, unit = float64(snapshot.Distinct), "addresses"
		case "top_count":
			currentValue, unit = float64(topCount), "counts"
		case "top_share":
			currentValue, unit = topShare, "%"
		default:
			log.Printf("Warning: unknown metric '%s' in alerter rule '%s'", rule.Metric, rule.Name)
			continue
		}

		if !check(currentValue, rule.Threshold, rule.Operator) {
			continue
		}
		triggeredMessages = append(triggeredMessages, fmt.Sprintf("### Alert: %s\n\n"+
			"- **Task:** `%s`\n"+
			"- **Metric:** `%s`\n"+
			"- **Condition:** `%s %.2f`\n"+
			"- **Observed Value:** `%.2f %s`\n"+
			"- **Top Address:** `%s`\n",
			rule.Name, rule.TaskName, rule.Metric, rule.Operator, rule.Threshold, currentValue, unit, topAddr))
	}

	return strings.Join(triggeredMessages, "\n---\n\n")
}

// check compares a value against a threshold based on an operator.
func check(value, threshold float64, operator string) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case "=":
		return value == threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	default:
		log.Printf("Warning: unknown operator '%s' in alerter rule", operator)
		return false
	}
}
