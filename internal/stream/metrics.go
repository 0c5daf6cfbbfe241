package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const streamLabel = "stream"

// Metrics holds every metric the stream worker pipeline emits, named per
// spec.md §6. A single Metrics value is shared across all five stream
// kinds' workers; each observation is labelled with the stream kind.
type Metrics struct {
	FetcherActive   *prometheus.GaugeVec
	MessagesFetched *prometheus.CounterVec
	MessagesDropped *prometheus.CounterVec
	BytesReceived   *prometheus.CounterVec
	QueueDepth      *prometheus.GaugeVec
	WorkerErrors    *prometheus.CounterVec
	WorkerDuration  *prometheus.HistogramVec
}

// NewMetrics registers the stream worker metric vectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FetcherActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nats_fetcher_active",
			Help: "1 if a stream's fetcher task is currently running, 0 otherwise.",
		}, []string{streamLabel}),
		MessagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nats_messages_fetched",
			Help: "Total messages fetched from the substrate, per stream.",
		}, []string{streamLabel}),
		MessagesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nats_messages_dropped",
			Help: "Total messages dropped before dispatch, per stream and reason.",
		}, []string{streamLabel, "reason"}),
		BytesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nats_bytes_received",
			Help: "Total payload bytes fetched from the substrate, per stream.",
		}, []string{streamLabel}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nats_queue_depth",
			Help: "Current depth of the bounded per-stream queue.",
		}, []string{streamLabel}),
		WorkerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nats_worker_errors",
			Help: "Total worker errors, per stream and reason.",
		}, []string{streamLabel, "reason"}),
		WorkerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "nats_worker_duration_seconds",
			Help: "Time spent decoding and dispatching a single message, per stream.",
		}, []string{streamLabel}),
	}
}
