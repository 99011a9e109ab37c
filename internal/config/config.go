package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultMaxBars             = 10
	defaultNumWorkers          = 4
	defaultSizeOfPacketChannel = 10000
	defaultChartWidth          = 1024
	defaultChartHeight         = 512
)

// ErrUnknownRelationship is returned when a task names a relationship other than src, dst or src_or_dst.
var ErrUnknownRelationship = errors.New("unknown relationship")

// LayoutConfig holds the static layout handed to the chart renderer.
type LayoutConfig struct {
	Title          string  `yaml:"title"`
	Subtitle       string  `yaml:"subtitle"`
	XLabel         string  `yaml:"x_label"`
	YLabel         string  `yaml:"y_label"`
	TitleOnBottom  bool    `yaml:"title_on_bottom"`
	PadLeftFactor  float64 `yaml:"pad_left_factor"`
	PadRightFactor float64 `yaml:"pad_right_factor"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
}

// HistogramTaskDef defines a single address histogram task from the config file.
type HistogramTaskDef struct {
	Name         string       `yaml:"name"`
	Relationship string       `yaml:"relationship"` // src, dst or src_or_dst
	MaxBars      int          `yaml:"max_bars"`
	Backend      string       `yaml:"backend"` // map, iptree or countmin
	Sketch       SketchDef    `yaml:"sketch"`
	Layout       LayoutConfig `yaml:"layout"`
}

// SketchDef configures the countmin backend.
type SketchDef struct {
	Width     uint32 `yaml:"width"`
	Depth     uint32 `yaml:"depth"`
	Threshold uint32 `yaml:"threshold"`
}

// ClickHouseConfig holds the connection settings for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SQLiteConfig holds the settings for the SQLite writer and querier.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// FileConfig holds the settings for writers that produce files.
type FileConfig struct {
	RootPath string `yaml:"root_path"`
	Format   string `yaml:"format"` // chart writer only: png or svg
}

// WriterDef defines a single writer for an aggregator group.
type WriterDef struct {
	Type             string           `yaml:"type"`
	Enabled          bool             `yaml:"enabled"`
	SnapshotInterval string           `yaml:"snapshot_interval"`
	Gob              FileConfig       `yaml:"gob"`
	Text             FileConfig       `yaml:"text"`
	Chart            FileConfig       `yaml:"chart"`
	ClickHouse       ClickHouseConfig `yaml:"clickhouse"`
	SQLite           SQLiteConfig     `yaml:"sqlite"`
}

// HistogramConfig groups the histogram tasks with their writers.
type HistogramConfig struct {
	Tasks   []HistogramTaskDef `yaml:"tasks"`
	Writers []WriterDef        `yaml:"writers"`
}

// AggregatorConfig holds the configuration for the aggregation engine.
type AggregatorConfig struct {
	Types               []string        `yaml:"types"`
	Period              string          `yaml:"period"`
	NumWorkers          int             `yaml:"num_workers"`
	SizeOfPacketChannel int             `yaml:"size_of_packet_channel"`
	Histogram           HistogramConfig `yaml:"histogram"`
}

// PersistenceConfig controls raw packet persistence on the probe.
type PersistenceConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Path              string `yaml:"path"`
	Encoding          string `yaml:"encoding"` // pcap, gob or text
	ChannelBufferSize int    `yaml:"channel_buffer_size"`
}

// ProbeConfig holds the NATS settings shared by the probe and the engine.
type ProbeConfig struct {
	NATSURL     string            `yaml:"nats_url"`
	Subject     string            `yaml:"subject"`
	Persistence PersistenceConfig `yaml:"persistence"`
}

// APIConfig holds the listen addresses of the query service.
type APIConfig struct {
	HttpListenAddr string `yaml:"http_listen_addr"`
	GrpcListenAddr string `yaml:"grpc_listen_addr"`
}

// MetricsConfig controls the Prometheus endpoint of the engine.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// AlerterRule defines a single threshold rule evaluated against a task.
type AlerterRule struct {
	Name      string  `yaml:"name"`
	TaskName  string  `yaml:"task_name"`
	Metric    string  `yaml:"metric"` // total_count, distinct_addresses, top_count, top_share
	Operator  string  `yaml:"operator"`
	Threshold float64 `yaml:"threshold"`
}

// AlerterConfig holds the alerter settings.
type AlerterConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CheckInterval string        `yaml:"check_interval"`
	Rules         []AlerterRule `yaml:"rules"`
}

// SMTPConfig holds the settings of the email notifier.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Probe      ProbeConfig      `yaml:"probe"`
	API        APIConfig        `yaml:"api"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Alerter    AlerterConfig    `yaml:"alerter"`
	SMTP       SMTPConfig       `yaml:"smtp"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a Config and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	agg := &c.Aggregator
	if len(agg.Types) == 0 {
		agg.Types = []string{"histogram"}
	}
	if agg.Period == "" {
		agg.Period = "1h"
	}
	if agg.NumWorkers <= 0 {
		agg.NumWorkers = defaultNumWorkers
	}
	if agg.SizeOfPacketChannel <= 0 {
		agg.SizeOfPacketChannel = defaultSizeOfPacketChannel
	}
	for i := range agg.Histogram.Tasks {
		task := &agg.Histogram.Tasks[i]
		if task.Relationship == "" {
			task.Relationship = "src_or_dst"
		}
		// max_bars: 0 is a valid degenerate capacity, only negative values fall back.
		if task.MaxBars < 0 {
			task.MaxBars = defaultMaxBars
		}
		if task.Backend == "" {
			task.Backend = "map"
		}
		if task.Layout.Width <= 0 {
			task.Layout.Width = defaultChartWidth
		}
		if task.Layout.Height <= 0 {
			task.Layout.Height = defaultChartHeight
		}
	}
	if c.Probe.Subject == "" {
		c.Probe.Subject = "addrspectra.packets.raw"
	}
	if c.Alerter.CheckInterval == "" {
		c.Alerter.CheckInterval = "1m"
	}
}

func (c *Config) validate() error {
	for _, task := range c.Aggregator.Histogram.Tasks {
		if task.Name == "" {
			return fmt.Errorf("histogram task without a name")
		}
		switch task.Relationship {
		case "src", "dst", "src_or_dst":
		default:
			return fmt.Errorf("task '%s': %w: '%s'", task.Name, ErrUnknownRelationship, task.Relationship)
		}
		switch task.Backend {
		case "map", "iptree", "countmin":
		default:
			return fmt.Errorf("task '%s': unknown backend '%s'", task.Name, task.Backend)
		}
	}
	return nil
}
