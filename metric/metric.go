// Package metric provides Prometheus instrumentation for extraction runs.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pass label values used on per-pass counters.
const (
	PassMembership = "membership"
	PassConstraint = "constraint"
)

// Metrics contains all extraction pipeline metrics, registered on a
// private registry so parallel test runs never collide. All Record
// helpers tolerate a nil receiver, so callers that run without metrics
// skip instrumentation without guards.
type Metrics struct {
	registry *prometheus.Registry

	TriplesProcessed  *prometheus.CounterVec
	LinesSkipped      *prometheus.CounterVec
	EntitiesTracked   prometheus.Gauge
	ClassesDiscovered prometheus.Gauge
	SymbolsIssued     prometheus.Gauge
	ShapesBuilt       prometheus.Counter
	PhaseDuration     *prometheus.HistogramVec
	SinkErrors        *prometheus.CounterVec
}

// New creates and registers all pipeline metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		TriplesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semshape",
				Subsystem: "extract",
				Name:      "triples_processed_total",
				Help:      "Total number of triples processed per pass",
			},
			[]string{"pass"},
		),

		LinesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semshape",
				Subsystem: "extract",
				Name:      "lines_skipped_total",
				Help:      "Total number of malformed lines skipped per pass",
			},
			[]string{"pass"},
		),

		EntitiesTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "semshape",
				Subsystem: "extract",
				Name:      "entities_tracked",
				Help:      "Number of distinct entities with a summary",
			},
		),

		ClassesDiscovered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "semshape",
				Subsystem: "extract",
				Name:      "classes_discovered",
				Help:      "Number of distinct classes seen in the membership pass",
			},
		),

		SymbolsIssued: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "semshape",
				Subsystem: "extract",
				Name:      "symbols_issued",
				Help:      "Number of symbols the encoder has issued",
			},
		),

		ShapesBuilt: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "semshape",
				Subsystem: "shapes",
				Name:      "built_total",
				Help:      "Total number of node shapes constructed",
			},
		),

		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "semshape",
				Subsystem: "extract",
				Name:      "phase_duration_seconds",
				Help:      "Duration of each pipeline phase in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"phase"},
		),

		SinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semshape",
				Subsystem: "errors",
				Name:      "sink_total",
				Help:      "Total number of output sink errors",
			},
			[]string{"sink"},
		),
	}

	m.registry.MustRegister(
		m.TriplesProcessed,
		m.LinesSkipped,
		m.EntitiesTracked,
		m.ClassesDiscovered,
		m.SymbolsIssued,
		m.ShapesBuilt,
		m.PhaseDuration,
		m.SinkErrors,
	)
	return m
}

// RecordScan updates the per-pass triple and skip counters.
func (m *Metrics) RecordScan(pass string, triples, skipped int64) {
	if m == nil {
		return
	}
	m.TriplesProcessed.WithLabelValues(pass).Add(float64(triples))
	m.LinesSkipped.WithLabelValues(pass).Add(float64(skipped))
}

// RecordAggregates updates the gauges describing aggregate state.
func (m *Metrics) RecordAggregates(entities, classes, symbols int) {
	if m == nil {
		return
	}
	m.EntitiesTracked.Set(float64(entities))
	m.ClassesDiscovered.Set(float64(classes))
	m.SymbolsIssued.Set(float64(symbols))
}

// RecordShapes counts constructed node shapes.
func (m *Metrics) RecordShapes(n int) {
	if m == nil {
		return
	}
	m.ShapesBuilt.Add(float64(n))
}

// RecordPhase records how long a pipeline phase took.
func (m *Metrics) RecordPhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordSinkError counts a failure in an output sink.
func (m *Metrics) RecordSinkError(sink string) {
	if m == nil {
		return
	}
	m.SinkErrors.WithLabelValues(sink).Inc()
}
