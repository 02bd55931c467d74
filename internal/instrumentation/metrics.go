// Package instrumentation exposes Prometheus metrics for the aggregation
// engine. All recording methods are nil-receiver safe so callers can run
// without metrics wired in.
package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the reconciliation engine.
type Metrics struct {
	VenueFetches   *prometheus.CounterVec
	RecordsFetched *prometheus.CounterVec
	MatchesFound   prometheus.Counter
	AlertsTotal    *prometheus.CounterVec
	AggregationMs  prometheus.Histogram
	SnapshotsSaved prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics on the default
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		VenueFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fedlens_venue_fetches_total",
			Help: "Venue fetch attempts by venue and outcome",
		}, []string{"venue", "outcome"}),

		RecordsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fedlens_records_fetched_total",
			Help: "Market records fetched by venue",
		}, []string{"venue"}),

		MatchesFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fedlens_matches_total",
			Help: "Cross-venue matched pairs produced",
		}),

		AlertsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fedlens_alerts_total",
			Help: "Alerts emitted by kind",
		}, []string{"kind"}),

		AggregationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fedlens_aggregation_duration_ms",
			Help:    "Wall time of one full aggregation call in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),

		SnapshotsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fedlens_snapshots_saved_total",
			Help: "Market snapshots persisted by the watch loop",
		}),
	}
}

// RecordVenueFetch counts one venue fetch attempt with its outcome
// ("ok" or "error").
func (m *Metrics) RecordVenueFetch(venue, outcome string) {
	if m == nil {
		return
	}
	m.VenueFetches.WithLabelValues(venue, outcome).Inc()
}

// RecordRecordsFetched counts records returned by a venue.
func (m *Metrics) RecordRecordsFetched(venue string, n int) {
	if m == nil {
		return
	}
	m.RecordsFetched.WithLabelValues(venue).Add(float64(n))
}

// RecordMatches counts matched pairs from one aggregation.
func (m *Metrics) RecordMatches(n int) {
	if m == nil {
		return
	}
	m.MatchesFound.Add(float64(n))
}

// RecordAlert counts one alert by kind.
func (m *Metrics) RecordAlert(kind string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(kind).Inc()
}

// RecordAggregationDuration records the wall time of one aggregation call.
func (m *Metrics) RecordAggregationDuration(ms float64) {
	if m == nil {
		return
	}
	m.AggregationMs.Observe(ms)
}

// RecordSnapshotsSaved counts snapshots written by the watch loop.
func (m *Metrics) RecordSnapshotsSaved(n int) {
	if m == nil {
		return
	}
	m.SnapshotsSaved.Add(float64(n))
}
