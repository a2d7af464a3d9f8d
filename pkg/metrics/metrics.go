// Package metrics exposes Prometheus instrumentation for configuration
// operations. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "keel"

// Result labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics owns a private registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	mutations          *prometheus.CounterVec
	validationProblems *prometheus.CounterVec
	generations        *prometheus.CounterVec
	generationDuration prometheus.Histogram
	profilesStaged     *prometheus.CounterVec
	secretDecryptions  *prometheus.CounterVec
	secretCacheHits    prometheus.Counter
	backups            *prometheus.CounterVec
}

// New creates collectors and registers them, together with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "mutations_total",
			Help:      "Configuration mutations by operation and result.",
		}, []string{"op", "result"}),
		validationProblems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "problems_total",
			Help:      "Validation problems reported, by severity.",
		}, []string{"severity"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "runs_total",
			Help:      "Profile generation runs by result.",
		}, []string{"result"}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "duration_seconds",
			Help:      "Duration of profile generation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		profilesStaged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "profiles_staged_total",
			Help:      "Profiles written to staging, by service.",
		}, []string{"service"}),
		secretDecryptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "secrets",
			Name:      "decryptions_total",
			Help:      "Secret engine invocations, by engine.",
		}, []string{"engine"}),
		secretCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "secrets",
			Name:      "cache_hits_total",
			Help:      "Secret lookups served from a session cache.",
		}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "operations_total",
			Help:      "Backup and restore operations by kind and result.",
		}, []string{"kind", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.mutations,
		m.validationProblems,
		m.generations,
		m.generationDuration,
		m.profilesStaged,
		m.secretDecryptions,
		m.secretCacheHits,
		m.backups,
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

func (m *Metrics) RecordMutation(op string, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, Result(err)).Inc()
}

func (m *Metrics) RecordProblems(severity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.validationProblems.WithLabelValues(severity).Add(float64(n))
}

func (m *Metrics) ObserveGeneration(start time.Time, err error) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(Result(err)).Inc()
	m.generationDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordProfileStaged(service string) {
	if m == nil {
		return
	}
	m.profilesStaged.WithLabelValues(service).Inc()
}

func (m *Metrics) RecordDecryption(engine string) {
	if m == nil {
		return
	}
	m.secretDecryptions.WithLabelValues(engine).Inc()
}

func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.secretCacheHits.Inc()
}

func (m *Metrics) RecordBackup(kind string, err error) {
	if m == nil {
		return
	}
	m.backups.WithLabelValues(kind, Result(err)).Inc()
}
