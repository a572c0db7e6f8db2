// Package metrics provides Prometheus instrumentation for the mktrend
// engine, grounded on the forecaster metrics package in the example
// pack (promauto-registered histograms/gauges/counters, one struct,
// record-method-per-metric).
//
// Metrics exposed:
//   - mktrend_kernel_seconds: Histogram of C2 Mann-Kendall kernel duration
//   - mktrend_slope_seconds: Histogram of C3 slope estimation duration
//   - mktrend_surrogate_seconds: Histogram of C7 surrogate ensemble generation duration
//   - mktrend_rolling_windows: Gauge of the window count in the most recent rolling run
//   - mktrend_analyses_total: Counter of completed analyses by operation and trend classification
//   - mktrend_errors_total: Counter of errors by operation and error kind
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric mktrend exposes.
type Metrics struct {
	KernelSeconds     prometheus.Histogram
	SlopeSeconds      prometheus.Histogram
	SurrogateSeconds  prometheus.Histogram
	RollingWindows    prometheus.Gauge
	AnalysesTotal     *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
}

// New creates and registers every metric, labeled by instance (e.g. the
// CLI invocation name or serve-mode listener address).
func New(instance string) *Metrics {
	return &Metrics{
		KernelSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "mktrend_kernel_seconds",
			Help: "Time spent in the Mann-Kendall kernel (C2)",
			ConstLabels: prometheus.Labels{
				"instance": instance,
			},
			Buckets: prometheus.DefBuckets,
		}),

		SlopeSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "mktrend_slope_seconds",
			Help: "Time spent estimating the slope (C3)",
			ConstLabels: prometheus.Labels{
				"instance": instance,
			},
			Buckets: prometheus.DefBuckets,
		}),

		SurrogateSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "mktrend_surrogate_seconds",
			Help: "Time spent generating a surrogate ensemble (C7)",
			ConstLabels: prometheus.Labels{
				"instance": instance,
			},
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),

		RollingWindows: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mktrend_rolling_windows",
			Help: "Number of windows produced by the most recent rolling_trend_test",
			ConstLabels: prometheus.Labels{
				"instance": instance,
			},
		}),

		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mktrend_analyses_total",
			Help: "Total number of completed analyses by operation and trend classification",
			ConstLabels: prometheus.Labels{
				"instance": instance,
			},
		}, []string{"operation", "trend"}),

		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mktrend_errors_total",
			Help: "Total number of errors by operation and error kind",
			ConstLabels: prometheus.Labels{
				"instance": instance,
			},
		}, []string{"operation", "kind"}),
	}
}

// RecordKernel records the time spent in the C2 kernel.
func (m *Metrics) RecordKernel(seconds float64) { m.KernelSeconds.Observe(seconds) }

// RecordSlope records the time spent in C3 slope estimation.
func (m *Metrics) RecordSlope(seconds float64) { m.SlopeSeconds.Observe(seconds) }

// RecordSurrogate records the time spent generating a surrogate ensemble.
func (m *Metrics) RecordSurrogate(seconds float64) { m.SurrogateSeconds.Observe(seconds) }

// SetRollingWindows sets the window count of the most recent rolling run.
func (m *Metrics) SetRollingWindows(n int) { m.RollingWindows.Set(float64(n)) }

// RecordAnalysis increments the completed-analysis counter.
func (m *Metrics) RecordAnalysis(operation, trend string) {
	m.AnalysesTotal.WithLabelValues(operation, trend).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(operation, kind string) {
	m.ErrorsTotal.WithLabelValues(operation, kind).Inc()
}
