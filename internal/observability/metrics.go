package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "property_enrichment"

// Metrics holds the Prometheus counters, histograms, and gauges for the enrichment service.
type Metrics struct {
	Enrichments        *prometheus.CounterVec // labels: outcome={cache_hit,enriched,empty}
	EnrichmentDuration prometheus.Histogram

	// Source adapter metrics.
	AdapterRequests *prometheus.CounterVec   // labels: source, outcome={success,no_data,not_configured,timeout,error}
	AdapterDuration *prometheus.HistogramVec // labels: source

	// Cache store metrics.
	CacheLookups *prometheus.CounterVec // labels: family, result={hit,miss,expired,error}
	CacheWrites  *prometheus.CounterVec // labels: family, outcome={ok,error}
	CacheSwept   *prometheus.CounterVec // labels: family

	EventsPublished *prometheus.CounterVec // labels: outcome={ok,error}
	AdaptersEnabled *prometheus.GaugeVec   // labels: source
}

// NewMetrics creates and registers all enrichment metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Enrichments,
		m.EnrichmentDuration,
		m.AdapterRequests,
		m.AdapterDuration,
		m.CacheLookups,
		m.CacheWrites,
		m.CacheSwept,
		m.EventsPublished,
		m.AdaptersEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Enrichment requests by outcome.",
		}, []string{"outcome"}),
		EnrichmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_duration_seconds",
			Help:      "Duration of a complete enrichment, including cache lookups.",
			Buckets:   []float64{0.005, 0.05, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		AdapterRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_requests_total",
			Help:      "Source adapter calls by source and outcome.",
		}, []string{"source", "outcome"}),
		AdapterDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_duration_seconds",
			Help:      "Source adapter call duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache store lookups by family and result.",
		}, []string{"family", "result"}),
		CacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Cache store writes by family and outcome.",
		}, []string{"family", "outcome"}),
		CacheSwept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_swept_total",
			Help:      "Expired cache entries removed by sweeps.",
		}, []string{"family"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Enrichment events published by outcome.",
		}, []string{"outcome"}),
		AdaptersEnabled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "adapter_enabled",
			Help:      "1 when a source adapter is configured, 0 otherwise.",
		}, []string{"source"}),
	}
}

// RecordSource implements domain.SourceRecorder.
func (m *Metrics) RecordSource(source, outcome string, elapsed time.Duration) {
	m.AdapterRequests.WithLabelValues(source, outcome).Inc()
	m.AdapterDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// RecordCacheLookup implements cache.Recorder.
func (m *Metrics) RecordCacheLookup(family, result string) {
	m.CacheLookups.WithLabelValues(family, result).Inc()
}

// RecordCacheWrite implements cache.Recorder.
func (m *Metrics) RecordCacheWrite(family, outcome string) {
	m.CacheWrites.WithLabelValues(family, outcome).Inc()
}

// RecordCacheSweep implements cache.Recorder.
func (m *Metrics) RecordCacheSweep(family string, removed int64) {
	m.CacheSwept.WithLabelValues(family).Add(float64(removed))
}

// SetAdapterEnabled records whether a source adapter was constructed.
func (m *Metrics) SetAdapterEnabled(source string, enabled bool) {
	v := 0.0
	if enabled {
		v = 1
	}
	m.AdaptersEnabled.WithLabelValues(source).Set(v)
}
