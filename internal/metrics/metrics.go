// Package metrics exposes reconcile and install counters through a
// dedicated Prometheus registry, served by watch mode when a bind
// address is configured.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "patchtrack"

// PassStats carries the counters of one completed reconcile pass.
type PassStats struct {
	UpdatesSeen      int
	UpdatesAdded     int64
	UpdatesRemoved   int64
	FilesAdded       int64
	FilesRemoved     int64
	PairsSeeded      int64
	UpdatesEmpty     int
	UpdatesFailed    int
	UpdatesInstalled int
	UpdatesPending   int
	Duration         time.Duration
}

// Metrics owns the patchtrack collectors. All methods are nil-safe and
// safe for concurrent use.
type Metrics struct {
	registry *prom.Registry

	passesTotal       prom.Counter
	passFailuresTotal *prom.CounterVec
	passDuration      prom.Histogram
	rowsTotal         *prom.CounterVec
	updatesByStatus   *prom.GaugeVec
	lastPassUnix      prom.Gauge
	activeUpdates     prom.Gauge
}

// New constructs a registry holding every patchtrack collector plus the
// standard Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prom.NewRegistry(),
		passesTotal: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_passes_total",
			Help:      "Completed reconcile passes",
		}),
		passFailuresTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_pass_failures_total",
			Help:      "Reconcile passes that aborted with an error, by error kind",
		}, []string{"kind"}),
		passDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_pass_duration_seconds",
			Help:      "Duration of completed reconcile passes",
			Buckets:   prom.DefBuckets,
		}),
		rowsTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_rows_total",
			Help:      "Catalog rows written by reconcile passes, by kind and action",
		}, []string{"kind", "action"}),
		updatesByStatus: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "updates_by_status",
			Help:      "Active updates for this host by rollup status, as of the last pass",
		}, []string{"status"}),
		lastPassUnix: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time of the last completed reconcile pass",
		}),
		activeUpdates: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "active_updates",
			Help:      "Update directories seen by the last pass",
		}),
	}
	m.registry.MustRegister(
		m.passesTotal,
		m.passFailuresTotal,
		m.passDuration,
		m.rowsTotal,
		m.updatesByStatus,
		m.lastPassUnix,
		m.activeUpdates,
	)
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePass records one completed pass.
func (m *Metrics) ObservePass(stats PassStats) {
	if m == nil {
		return
	}
	m.passesTotal.Inc()
	m.passDuration.Observe(stats.Duration.Seconds())
	m.rowsTotal.WithLabelValues("update", "added").Add(float64(stats.UpdatesAdded))
	m.rowsTotal.WithLabelValues("update", "removed").Add(float64(stats.UpdatesRemoved))
	m.rowsTotal.WithLabelValues("file", "added").Add(float64(stats.FilesAdded))
	m.rowsTotal.WithLabelValues("file", "removed").Add(float64(stats.FilesRemoved))
	m.rowsTotal.WithLabelValues("pair", "seeded").Add(float64(stats.PairsSeeded))
	m.updatesByStatus.WithLabelValues("empty").Set(float64(stats.UpdatesEmpty))
	m.updatesByStatus.WithLabelValues("failed").Set(float64(stats.UpdatesFailed))
	m.updatesByStatus.WithLabelValues("installed").Set(float64(stats.UpdatesInstalled))
	m.updatesByStatus.WithLabelValues("pending").Set(float64(stats.UpdatesPending))
	m.lastPassUnix.SetToCurrentTime()
	m.activeUpdates.Set(float64(stats.UpdatesSeen))
}

// ObservePassFailure records one aborted pass under its error kind.
func (m *Metrics) ObservePassFailure(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "internal"
	}
	m.passFailuresTotal.WithLabelValues(kind).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
