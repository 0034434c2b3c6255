package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus instruments. A nil *Metrics is a
// valid no-op, so tests can skip registration.
type Metrics struct {
	QuizzesGenerated   prometheus.Counter
	GenerationFailures prometheus.Counter
	AttemptsGraded     prometheus.Counter
	GenerationDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QuizzesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "quizzes_generated_total",
			Help:      "Quiz attempts successfully generated.",
		}),
		GenerationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "generation_failures_total",
			Help:      "Quiz generation requests that failed.",
		}),
		AttemptsGraded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "attempts_graded_total",
			Help:      "Quiz submissions graded and finalized.",
		}),
		GenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quizgen",
			Name:      "generation_duration_seconds",
			Help:      "Latency of the external generation call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ObserveGeneration records one generation outcome.
func (m *Metrics) ObserveGeneration(d time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.GenerationFailures.Inc()
		return
	}
	m.QuizzesGenerated.Inc()
	m.GenerationDuration.Observe(d.Seconds())
}

// IncGraded records one graded submission.
func (m *Metrics) IncGraded() {
	if m == nil {
		return
	}
	m.AttemptsGraded.Inc()
}
