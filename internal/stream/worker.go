package stream

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/nats-geyser-runner/internal/codec"
	"github.com/teranos/nats-geyser-runner/internal/plugin"
	"github.com/teranos/nats-geyser-runner/internal/shutdown"
)

const (
	// DefaultQueueCapacity is the default bounded-queue size per stream.
	DefaultQueueCapacity = 5000
	// DefaultMaxBatch is the default substrate fetch batch size.
	DefaultMaxBatch = 64
	// DefaultMaxExpires bounds how long a single fetch waits for messages.
	DefaultMaxExpires = 2 * time.Second
	// queueMonitorInterval is how often the queue-depth gauge is published.
	queueMonitorInterval = 500 * time.Millisecond
)

// Config configures a single stream kind's worker.
type Config struct {
	Kind          Kind
	StreamName    string
	Substrate     Substrate
	Sink          plugin.Sink
	Codec         codec.Codec
	Shutdown      *shutdown.Broadcast
	Metrics       *Metrics
	QueueCapacity int
	MaxBatch      int
	MaxExpires    time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.QueueCapacity <= 0 {
		out.QueueCapacity = DefaultQueueCapacity
	}
	if out.MaxBatch <= 0 {
		out.MaxBatch = DefaultMaxBatch
	}
	if out.MaxExpires <= 0 {
		out.MaxExpires = DefaultMaxExpires
	}
	return out
}

// Worker runs the three sub-tasks (fetcher, ordered worker, queue-depth
// monitor) for one stream kind. Exactly one ordered worker goroutine ever
// runs per Worker: parallelising dispatch within a kind would break the
// substrate's single-reader ordering guarantee.
type Worker struct {
	cfg   Config
	queue *boundedQueue
	log   *log.Entry
}

// NewWorker constructs a Worker; it does not start any goroutines.
func NewWorker(cfg Config) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		cfg:   cfg,
		queue: newBoundedQueue(cfg.QueueCapacity),
		log: log.WithFields(log.Fields{
			"component": "stream-worker",
			"stream":    cfg.Kind.String(),
		}),
	}
}

// Start registers the fetcher, ordered worker, and queue-depth monitor
// with group and returns immediately: it does not await their completion.
// group.Wait (driven by the Supervisor) is the only thing that ever
// blocks on them.
func (w *Worker) Start(ctx context.Context, group *errgroup.Group) {
	group.Go(func() error {
		w.fetch(ctx)
		return nil
	})
	group.Go(func() error {
		w.dispatch()
		return nil
	})
	group.Go(func() error {
		w.monitorQueueDepth()
		return nil
	})
}

// run starts all three sub-tasks under an errgroup of its own and blocks
// until they have all returned.
func (w *Worker) run(ctx context.Context) {
	group, gctx := errgroup.WithContext(ctx)
	w.Start(gctx, group)
	_ = group.Wait()
}

func (w *Worker) fetch(ctx context.Context) {
	stream := w.cfg.Kind.String()
	w.cfg.Metrics.FetcherActive.WithLabelValues(stream).Set(1)
	defer w.cfg.Metrics.FetcherActive.WithLabelValues(stream).Set(0)

	consumer, err := w.cfg.Substrate.OrderedConsumer(ctx, w.cfg.StreamName, ConsumerOptions{
		MaxBatch:   w.cfg.MaxBatch,
		MaxExpires: w.cfg.MaxExpires,
	})
	if err != nil {
		w.log.WithError(err).Error("failed to open ordered consumer, fetcher exiting")
		return
	}
	defer consumer.Close()

	for {
		select {
		case <-w.cfg.Shutdown.Done():
			w.log.Info("fetcher received shutdown signal")
			return
		default:
		}

		deliveries, ok := consumer.Next(ctx)
		if !ok {
			w.log.Info("substrate stream ended, fetcher exiting")
			return
		}

		for _, d := range deliveries {
			if d.Err != nil {
				w.cfg.Metrics.WorkerErrors.WithLabelValues(stream, "fetch_error").Inc()
				w.log.WithError(d.Err).Warn("transient substrate fetch error, continuing")
				continue
			}

			w.cfg.Metrics.MessagesFetched.WithLabelValues(stream).Inc()
			w.cfg.Metrics.BytesReceived.WithLabelValues(stream).Add(float64(len(d.Payload)))

			if !w.queue.TryEnqueue(RawMessage{Kind: w.cfg.Kind, Payload: d.Payload}) {
				w.cfg.Metrics.MessagesDropped.WithLabelValues(stream, "buffer_full").Inc()
				w.log.Warn("dropped message: buffer full")
			}
		}

		select {
		case <-w.cfg.Shutdown.Done():
			w.log.Info("fetcher received shutdown signal")
			return
		default:
		}
	}
}

func (w *Worker) dispatch() {
	stream := w.cfg.Kind.String()

	for {
		select {
		case <-w.cfg.Shutdown.Done():
			w.log.Info("ordered worker received shutdown signal")
			return
		case raw, ok := <-w.queue.ch:
			if !ok {
				w.log.Info("queue closed, ordered worker exiting")
				return
			}

			timer := newTimer()
			typed, err := w.cfg.Codec.Decode(raw.Kind, raw.Payload)
			if err != nil {
				w.cfg.Metrics.WorkerErrors.WithLabelValues(stream, "handler").Inc()
				w.log.WithError(err).Error("failed to decode message")
				w.cfg.Metrics.WorkerDuration.WithLabelValues(stream).Observe(timer.elapsed())
				continue
			}

			if err := plugin.Dispatch(w.cfg.Sink, typed); err != nil {
				w.cfg.Metrics.WorkerErrors.WithLabelValues(stream, "handler").Inc()
				w.log.WithError(err).Error("plugin sink rejected message")
			}
			w.cfg.Metrics.WorkerDuration.WithLabelValues(stream).Observe(timer.elapsed())
		}
	}
}

func (w *Worker) monitorQueueDepth() {
	stream := w.cfg.Kind.String()
	ticker := time.NewTicker(queueMonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.cfg.Shutdown.Done():
			return
		case <-ticker.C:
			w.cfg.Metrics.QueueDepth.WithLabelValues(stream).Set(float64(w.queue.Len()))
		}
	}
}

type timer struct{ start time.Time }

func newTimer() timer { return timer{start: time.Now()} }

func (t timer) elapsed() float64 { return time.Since(t.start).Seconds() }
