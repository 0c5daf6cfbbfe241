package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the quota checker's counters and histogram, named per
// spec.md §6.
type Metrics struct {
	Runs     prometheus.Counter
	Checked  prometheus.Counter
	Capped   prometheus.Counter
	Duration prometheus.Histogram
}

// NewMetrics registers the quota checker metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "quota_checker_runs",
			Help: "Total quota checker loop iterations.",
		}),
		Checked: factory.NewCounter(prometheus.CounterOpts{
			Name: "teams_checked",
			Help: "Total tenant checks performed across all loop iterations.",
		}),
		Capped: factory.NewCounter(prometheus.CounterOpts{
			Name: "teams_capped",
			Help: "Total tenants found over quota and shut down.",
		}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "quota_checker_duration_seconds",
			Help: "Duration of a single quota checker loop iteration.",
		}),
	}
}
