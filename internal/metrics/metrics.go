// Package metrics exposes Prometheus counters for the guard service.
//
// Hot-path increments go through sync/atomic-backed Prometheus collectors
// (CounterVec/Histogram), so request handling never blocks on a mutex for
// bookkeeping. Metric names mirror the reference implementation's
// hand-rolled Prometheus text body (anni_requests_total, anni_errors_total,
// anni_spans_only_total, anni_degrade_total, anni_glossary_*_total) so
// existing dashboards built against that text format keep working.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all runtime counters for a running guard instance.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal prometheus.Counter
	ErrorsTotal   prometheus.Counter

	TranslateLatency prometheus.Histogram

	SpansOnlyTotal       *prometheus.CounterVec // label: target
	DegradeTotal         *prometheus.CounterVec // label: reason
	GlossaryMissingTotal *prometheus.CounterVec // label: target
	GlossaryReplacedTotal *prometheus.CounterVec // label: target

	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter

	startTime time.Time
}

// New creates a Metrics instance registered against its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),
		RequestsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "anni_requests_total",
			Help: "Total translation requests handled.",
		}),
		ErrorsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "anni_errors_total",
			Help: "Total requests that ended in an unhandled error.",
		}),
		TranslateLatency: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "anni_translate_latency_seconds",
			Help:    "Latency of a single translation request.",
			Buckets: prometheus.DefBuckets,
		}),
		SpansOnlyTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "anni_spans_only_total",
			Help: "Translations handled via the spans-only strategy, by target locale.",
		}, []string{"target"}),
		DegradeTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "anni_degrade_total",
			Help: "Circuit-breaker degrade decisions, by reason.",
		}, []string{"reason"}),
		GlossaryMissingTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "anni_glossary_missing_total",
			Help: "Glossary terms that failed to restore, by target locale.",
		}, []string{"target"}),
		GlossaryReplacedTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "anni_glossary_replaced_total",
			Help: "Glossary terms successfully restored, by target locale.",
		}, []string{"target"}),
		CacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "anni_cache_hits_total",
			Help: "Translation cache hits.",
		}),
		CacheMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "anni_cache_misses_total",
			Help: "Translation cache misses.",
		}),
		CacheEvictions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "anni_cache_evictions_total",
			Help: "Translation cache evictions.",
		}),
	}
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "anni_uptime_seconds",
		Help: "Seconds since the guard process started.",
	}, func() float64 { return time.Since(m.startTime).Seconds() })
	return m
}

// Registry returns the Prometheus registry for wiring into promhttp.Handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordDegrade increments the degrade counter for the given reason.
func (m *Metrics) RecordDegrade(reason string) { m.DegradeTotal.WithLabelValues(reason).Inc() }

// RecordSpansOnly increments the spans-only counter for the given target locale.
func (m *Metrics) RecordSpansOnly(target string) { m.SpansOnlyTotal.WithLabelValues(target).Inc() }

// RecordGlossary increments the replaced/missing glossary counters for a target locale.
func (m *Metrics) RecordGlossary(target string, replaced, missing int) {
	if replaced > 0 {
		m.GlossaryReplacedTotal.WithLabelValues(target).Add(float64(replaced))
	}
	if missing > 0 {
		m.GlossaryMissingTotal.WithLabelValues(target).Add(float64(missing))
	}
}
