package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus metrics for the gateway.
type Metrics struct {
	registry *prometheus.Registry

	commandsAdmitted *prometheus.CounterVec
	commandsBlocked  *prometheus.CounterVec
	admissionLatency prometheus.Histogram
	publishFailures  prometheus.Counter
	queueDepth       prometheus.Gauge

	lifecycleApplied  *prometheus.CounterVec
	reconcileFailures *prometheus.CounterVec
}

// New creates a metrics registry and registers gateway metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	commandsAdmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commands_admitted_total",
		Help: "Total number of admitted trading commands.",
	}, []string{"type", "channel"})

	commandsBlocked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commands_blocked_total",
		Help: "Total number of risk-blocked trading commands.",
	}, []string{"reason"})

	admissionLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "command_admission_latency_seconds",
		Help:    "Latency for command admission in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	publishFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "command_publish_failures_total",
		Help: "Total number of queue publishes that failed after the ledger write.",
	})

	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "command_queue_depth",
		Help: "Current depth of the command queue.",
	})

	lifecycleApplied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_patches_applied_total",
		Help: "Total number of applied lifecycle patch subsections.",
	}, []string{"section"})

	reconcileFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_reconcile_failures_total",
		Help: "Total number of failed lifecycle reconcile calls.",
	}, []string{"code"})

	registry.MustRegister(commandsAdmitted, commandsBlocked, admissionLatency,
		publishFailures, queueDepth, lifecycleApplied, reconcileFailures)

	return &Metrics{
		registry:          registry,
		commandsAdmitted:  commandsAdmitted,
		commandsBlocked:   commandsBlocked,
		admissionLatency:  admissionLatency,
		publishFailures:   publishFailures,
		queueDepth:        queueDepth,
		lifecycleApplied:  lifecycleApplied,
		reconcileFailures: reconcileFailures,
	}
}

// IncAdmitted increments the admitted-commands counter.
func (m *Metrics) IncAdmitted(cmdType, channel string) {
	m.commandsAdmitted.WithLabelValues(cmdType, channel).Inc()
}

// IncBlocked increments the blocked-commands counter.
func (m *Metrics) IncBlocked(reason string) {
	m.commandsBlocked.WithLabelValues(reason).Inc()
}

// ObserveAdmissionLatency records admission latency.
func (m *Metrics) ObserveAdmissionLatency(d time.Duration) {
	m.admissionLatency.Observe(d.Seconds())
}

// IncPublishFailure increments the publish-failure counter.
func (m *Metrics) IncPublishFailure() {
	m.publishFailures.Inc()
}

// SetQueueDepth updates the queue depth gauge.
func (m *Metrics) SetQueueDepth(depth int64) {
	m.queueDepth.Set(float64(depth))
}

// IncLifecycleApplied increments the applied-subsection counter.
func (m *Metrics) IncLifecycleApplied(section string) {
	m.lifecycleApplied.WithLabelValues(section).Inc()
}

// IncReconcileFailure increments the reconcile-failure counter.
func (m *Metrics) IncReconcileFailure(code string) {
	m.reconcileFailures.WithLabelValues(code).Inc()
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
