package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "expectations"

// PrometheusRecorder implements Recorder with client_golang
// collectors.
type PrometheusRecorder struct {
	evaluations        *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	exceptions         *prometheus.CounterVec
	validations        *prometheus.CounterVec
	validationDuration prometheus.Histogram
	evaluated          prometheus.Counter
	suiteSize          prometheus.Gauge
}

// NewPrometheusRecorder registers the engine collectors with reg
// under namespace. A nil reg uses prometheus.DefaultRegisterer
// and an empty namespace uses DefaultNamespace. Registering twice
// on the same registerer panics, as promauto does.
func NewPrometheusRecorder(
	reg prometheus.Registerer,
	namespace string,
) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "expectation",
			Name:      "evaluations_total",
			Help:      "Total expectation evaluations by type and outcome",
		}, []string{"expectation_type", "kind", "outcome"}),

		evaluationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "expectation",
			Name:      "evaluation_duration_seconds",
			Help:      "Expectation evaluation latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"kind"}),

		exceptions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "expectation",
			Name:      "exceptions_total",
			Help:      "Total rule errors raised during evaluation",
		}, []string{"expectation_type"}),

		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "suite",
			Name:      "validations_total",
			Help:      "Total suite validation runs by outcome",
		}, []string{"outcome"}),

		validationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "suite",
			Name:      "validation_duration_seconds",
			Help:      "Suite validation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		evaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "suite",
			Name:      "evaluated_expectations_total",
			Help:      "Total expectations evaluated by suite validations",
		}),

		suiteSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "suite",
			Name:      "expectations",
			Help:      "Number of expectations in the bound suite",
		}),
	}
}

var (
	sharedMu        sync.Mutex
	sharedRecorders = map[string]*PrometheusRecorder{}
)

// Shared returns the recorder registered on
// prometheus.DefaultRegisterer for namespace, creating it on
// first use.
func Shared(namespace string) *PrometheusRecorder {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if r, ok := sharedRecorders[namespace]; ok {
		return r
	}
	r := NewPrometheusRecorder(prometheus.DefaultRegisterer, namespace)
	sharedRecorders[namespace] = r
	return r
}

// RecordEvaluation increments the evaluation counter and observes
// the latency.
func (m *PrometheusRecorder) RecordEvaluation(
	expectationType, kind string,
	success bool,
	duration time.Duration,
) {
	m.evaluations.WithLabelValues(expectationType, kind, outcome(success)).Inc()
	m.evaluationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordException increments the exception counter.
func (m *PrometheusRecorder) RecordException(expectationType string) {
	m.exceptions.WithLabelValues(expectationType).Inc()
}

// RecordValidation records a suite validation run.
func (m *PrometheusRecorder) RecordValidation(
	success bool,
	evaluated int,
	duration time.Duration,
) {
	m.validations.WithLabelValues(outcome(success)).Inc()
	m.validationDuration.Observe(duration.Seconds())
	m.evaluated.Add(float64(evaluated))
}

// SetSuiteSize sets the suite size gauge.
func (m *PrometheusRecorder) SetSuiteSize(count int) {
	m.suiteSize.Set(float64(count))
}
