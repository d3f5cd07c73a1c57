// Package metrics provides Prometheus metrics for the library caches and the
// progress synchronization engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Reconcile outcomes.
const (
	OutcomeNoop        = "noop"
	OutcomePush        = "push"
	OutcomePull        = "pull"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics holds every collector Folio exports. A nil *Metrics is valid and
// records nothing, which keeps components usable without a registry.
type Metrics struct {
	// hashLookups counts hash-cache lookups.
	// Labels:
	//   - result: "hit" or "miss"
	hashLookups *prometheus.CounterVec

	// digestDuration records full-file digest computations.
	// Buckets: 10ms .. 10s, PDFs range from a few KB to hundreds of MB.
	digestDuration prometheus.Histogram

	// metadataLookups counts metadata-cache lookups.
	// Labels:
	//   - result: "hit" or "miss"
	metadataLookups *prometheus.CounterVec

	// reconciles counts reconcile calls by outcome.
	// Labels:
	//   - outcome: noop, push, pull, unavailable, error
	reconciles *prometheus.CounterVec

	saves         prometheus.Counter
	batchFailures prometheus.Counter

	sseClients prometheus.Gauge
	// sseDropped counts events skipped for a client whose buffer was full.
	sseDropped prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hashLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_hash_cache_lookups_total",
				Help: "Total number of content-hash cache lookups",
			},
			[]string{"result"},
		),
		digestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "folio_digest_duration_seconds",
				Help:    "Duration of full-file content digests in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
		),
		metadataLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_metadata_cache_lookups_total",
				Help: "Total number of document metadata cache lookups",
			},
			[]string{"result"},
		),
		reconciles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_progress_reconciles_total",
				Help: "Total number of progress reconciliations by outcome",
			},
			[]string{"outcome"},
		),
		saves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "folio_progress_saves_total",
			Help: "Total number of local progress saves",
		}),
		batchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "folio_progress_batch_failures_total",
			Help: "Total number of per-hash failures skipped during batch sync",
		}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "folio_sse_clients",
			Help: "Number of connected event-stream clients",
		}),
		sseDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "folio_sse_dropped_events_total",
			Help: "Total number of events dropped for slow event-stream clients",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.hashLookups, m.digestDuration, m.metadataLookups,
			m.reconciles, m.saves, m.batchFailures, m.sseClients, m.sseDropped)
	}
	return m
}

func result(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// HashLookup records a hash-cache lookup.
func (m *Metrics) HashLookup(hit bool) {
	if m == nil {
		return
	}
	m.hashLookups.WithLabelValues(result(hit)).Inc()
}

// Digest records one full-file digest computation.
func (m *Metrics) Digest(d time.Duration) {
	if m == nil {
		return
	}
	m.digestDuration.Observe(d.Seconds())
}

// MetadataLookup records a metadata-cache lookup.
func (m *Metrics) MetadataLookup(hit bool) {
	if m == nil {
		return
	}
	m.metadataLookups.WithLabelValues(result(hit)).Inc()
}

// Reconcile records a reconcile outcome.
func (m *Metrics) Reconcile(outcome string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(outcome).Inc()
}

// Save records a local progress save.
func (m *Metrics) Save() {
	if m == nil {
		return
	}
	m.saves.Inc()
}

// BatchFailure records a hash skipped by a batch sync.
func (m *Metrics) BatchFailure() {
	if m == nil {
		return
	}
	m.batchFailures.Inc()
}

// SSEClients sets the number of connected event-stream clients.
func (m *Metrics) SSEClients(n int) {
	if m == nil {
		return
	}
	m.sseClients.Set(float64(n))
}

// SSEDropped records an event skipped for a slow client.
func (m *Metrics) SSEDropped() {
	if m == nil {
		return
	}
	m.sseDropped.Inc()
}
