package provisioning

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Step results used as metric labels.
const (
	ResultApplied = "applied"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
	ResultAborted = "aborted"
)

// Metrics records per-step outcomes on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	stepTotal    *prometheus.CounterVec
	stepAttempts *prometheus.HistogramVec
	stepDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the step metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stepTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stagehand",
				Name:      "step_total",
				Help:      "Total number of provisioning steps by result",
			},
			[]string{"step", "result"},
		),
		stepAttempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stagehand",
				Name:      "step_attempts",
				Help:      "Apply attempts used per step",
				Buckets:   prometheus.LinearBuckets(1, 1, 10),
			},
			[]string{"step"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stagehand",
				Name:      "step_duration_seconds",
				Help:      "Duration of provisioning steps in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27min
			},
			[]string{"step"},
		),
	}

	m.registry.MustRegister(m.stepTotal, m.stepAttempts, m.stepDuration)
	return m
}

// Registry returns the registry holding the step metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordStep records the outcome of one step.
func (m *Metrics) RecordStep(step, result string, attempts int, duration time.Duration) {
	if m == nil {
		return
	}
	m.stepTotal.WithLabelValues(step, result).Inc()
	if attempts > 0 {
		m.stepAttempts.WithLabelValues(step).Observe(float64(attempts))
	}
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// WriteToTextfile writes the metrics in the text exposition format, suitable
// for the node exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
