package billing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the billing emitter's counters and histogram, named per
// spec.md §6.
type Metrics struct {
	Success  prometheus.Counter
	Errors   prometheus.Counter
	Dropped  prometheus.Counter
	Duration prometheus.Histogram
}

// NewMetrics registers the billing emitter metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Success: factory.NewCounter(prometheus.CounterOpts{
			Name: "billing_events_sent",
			Help: "Total billing events successfully published.",
		}),
		Errors: factory.NewCounter(prometheus.CounterOpts{
			Name: "billing_event_send_errors",
			Help: "Total billing events dropped due to a serialisation or publish error.",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "billing_events_queue_dropped",
			Help: "Total billing events dropped because the producer channel was full.",
		}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "billing_event_send_duration_seconds",
			Help: "Time spent publishing a single billing event.",
		}),
	}
}
