package reaction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event outcomes used as the status label.
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// Metrics are the run counters of an analysis. A nil *Metrics records
// nothing.
type Metrics struct {
	Events     *prometheus.CounterVec
	Rejections *prometheus.CounterVec
	Duplicates prometheus.Counter
	Dropped    prometheus.Counter
	Duration   prometheus.Histogram
}

// NewMetrics registers the analysis metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reaction",
			Name:      "events_total",
			Help:      "Processed events by outcome.",
		}, []string{"status"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reaction",
			Name:      "filter_rejections_total",
			Help:      "Events rejected by each filter.",
		}, []string{"filter"}),
		Duplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reaction",
			Name:      "match_duplicates_total",
			Help:      "Reconstructed entries that lost a tie for a truth slot.",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reaction",
			Name:      "match_dropped_total",
			Help:      "Reconstructed entries without a valid truth slot.",
		}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reaction",
			Name:      "event_duration_seconds",
			Help:      "Time spent evaluating one event.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}

func (m *Metrics) event(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(status).Inc()
	m.Duration.Observe(elapsed.Seconds())
}

func (m *Metrics) rejected(label string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(label).Inc()
}

func (m *Metrics) matching(p Permutation) {
	if m == nil {
		return
	}
	m.Duplicates.Add(float64(p.Duplicates()))
	m.Dropped.Add(float64(p.Dropped()))
}
