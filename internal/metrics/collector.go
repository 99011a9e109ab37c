package metrics

import (
	"AddrSpectra/internal/engine/impl/histogram"
	"AddrSpectra/internal/model"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exports the current ranking of every histogram task on each scrape.
type Collector struct {
	tasks []model.Task

	total    *prometheus.Desc
	distinct *prometheus.Desc
	top      *prometheus.Desc
}

func New(tasks []model.Task) *Collector {
	return &Collector{
		tasks: tasks,
		total: prometheus.NewDesc(
			"addrspectra_total_count",
			"Address observations counted by the task in the current period",
			[]string{"task"},
			nil,
		),
		distinct: prometheus.NewDesc(
			"addrspectra_distinct_addresses",
			"Estimated number of distinct addresses in the current period",
			[]string{"task"},
			nil,
		),
		top: prometheus.NewDesc(
			"addrspectra_top_count",
			"Count of each address in the task's top list",
			[]string{"task", "rank", "address"},
			nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.distinct
	ch <- c.top
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, task := range c.tasks {
		snapshot, ok := task.Snapshot().(histogram.Snapshot)
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(snapshot.Top.TotalCount), snapshot.TaskName)
		ch <- prometheus.MustNewConstMetric(c.distinct, prometheus.GaugeValue, float64(snapshot.Distinct), snapshot.TaskName)
		for i, e := range snapshot.Top.Entries {
			if e.IsEmpty() {
				break
			}
			ch <- prometheus.MustNewConstMetric(c.top, prometheus.GaugeValue, float64(e.Count),
				snapshot.TaskName, strconv.Itoa(i+1), e.Key)
		}
	}
}

// Router returns a mux serving the collector on /metrics from its own registry.
func Router(tasks []model.Task) (*mux.Router, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(New(tasks))

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")
	return r, reg
}
