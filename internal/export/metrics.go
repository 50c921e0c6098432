package export

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the export pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	exports  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	rows     prometheus.Counter
	swept    prometheus.Counter
}

// NewMetrics registers the export collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookshelf_exports_total",
				Help: "Total number of export requests by outcome",
			},
			[]string{"selection", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookshelf_export_duration_seconds",
				Help:    "Time from validation until the archive is closed",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bookshelf_exports_in_flight",
				Help: "Exports currently holding a workspace",
			},
		),
		rows: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bookshelf_export_rows_total",
				Help: "Total number of records written to export archives",
			},
		),
		swept: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bookshelf_export_workspaces_swept_total",
				Help: "Orphaned export workspaces removed by the sweeper",
			},
		),
	}
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) finished(sel Selection, outcome string, rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.exports.WithLabelValues(sel.String(), outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if outcome == outcomeDone {
		m.rows.Add(float64(rows))
	}
}

func (m *Metrics) rejected(sel Selection, outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(sel.String(), outcome).Inc()
}

func (m *Metrics) sweptWorkspaces(n int) {
	if m == nil || n == 0 {
		return
	}
	m.swept.Add(float64(n))
}
