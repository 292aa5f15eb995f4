package benchmark

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/report"
)

const metricsNamespace = "hebench"

// Run outcomes recorded by hebench_runs_total.
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeNoMatch   = "no_match"
)

// Metrics exposes run outcomes and operation latencies. A nil *Metrics records nothing.
type Metrics struct {
	// RunsTotal counts runs by category and outcome.
	// Labels: category (Latency, Offline), outcome (completed, failed, no_match)
	RunsTotal *prometheus.CounterVec

	// OperationSeconds observes the wall time of one operation per sample.
	// Labels: workload, category
	OperationSeconds *prometheus.HistogramVec

	// ValidationFailuresTotal counts failed result samples by workload.
	// Labels: workload
	ValidationFailuresTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the benchmark metrics on reg. A nil reg uses a fresh registry.
//
// Arguments:
//   - reg: The registry to register on.
//
// Returns:
//   - *Metrics: The registered metrics.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "runs_total",
				Help:      "Total benchmark runs by category and outcome",
			},
			[]string{"category", "outcome"},
		),
		OperationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "operation_seconds",
				Help:      "Wall time of one operation per input sample in seconds",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 14),
			},
			[]string{"workload", "category"},
		),
		ValidationFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "validation_failures_total",
				Help:      "Total failed result samples by workload",
			},
			[]string{"workload"},
		),
		gatherer: reg,
	}
}

func (m *Metrics) observeOutcome(category api.Category, outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(string(category), outcome).Inc()
}

func (m *Metrics) observeReport(r *report.Report) {
	if m == nil {
		return
	}
	h := r.Header()
	workload := string(h.Descriptor.Workload)
	category := string(h.Descriptor.Category)

	m.RunsTotal.WithLabelValues(category, outcomeCompleted).Inc()
	for _, e := range r.Events() {
		if e.EventType != report.MainEventType || e.Iterations == 0 {
			continue
		}
		m.OperationSeconds.WithLabelValues(workload, category).Observe(e.Wall().Seconds() / float64(e.Iterations))
	}
	if failed := r.Validation().Failed; failed > 0 {
		m.ValidationFailuresTotal.WithLabelValues(workload).Add(float64(failed))
	}
}

// WriteTextfile writes the current metric values in the text exposition format, for
// collection by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.gatherer)
}
