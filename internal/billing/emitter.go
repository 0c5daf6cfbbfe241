// Package billing delivers billing events to an external bus without
// blocking the request handlers that produce them.
package billing

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/scram"

	"github.com/teranos/nats-geyser-runner/internal/shutdown"
)

const (
	namespace = "websocket-subscriptions"

	// DefaultChannelSize bounds the producer channel when Config doesn't
	// set one.
	DefaultChannelSize = 10000
	// DefaultQueueTimeout bounds a single publish attempt when Config
	// doesn't set one.
	DefaultQueueTimeout = 5 * time.Second

	messageTimeout = 60 * time.Second
	lingerDuration = 10 * time.Millisecond
	batchMessages  = 1000
)

// Config configures an Emitter.
type Config struct {
	Brokers      []string
	Topic        string
	ChannelSize  int
	QueueTimeout time.Duration
	SASLUsername string
	SASLPassword string
	Shutdown     *shutdown.Broadcast
	Metrics      *Metrics
}

func (c Config) withDefaults() Config {
	if c.ChannelSize <= 0 {
		c.ChannelSize = DefaultChannelSize
	}
	if c.QueueTimeout <= 0 {
		c.QueueTimeout = DefaultQueueTimeout
	}
	return c
}

// Emitter owns the bounded producer channel and the single consumer task
// that serialises and publishes billing events.
type Emitter struct {
	cfg    Config
	events chan Event
	client *kgo.Client
	log    *log.Entry
}

// NewEmitter builds the underlying Kafka-compatible client and returns a
// ready Emitter. It does not start the consumer task; call Run.
func NewEmitter(cfg Config) (*Emitter, error) {
	cfg = cfg.withDefaults()

	client, err := buildClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("build billing producer: %w", err)
	}

	return &Emitter{
		cfg:    cfg,
		events: make(chan Event, cfg.ChannelSize),
		client: client,
		log:    log.WithField("component", "billing-emitter"),
	}, nil
}

func buildClient(cfg Config) (*kgo.Client, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchCompression(kgo.GzipCompression()),
		kgo.ProducerLinger(lingerDuration),
		kgo.MaxBufferedRecords(batchMessages),
		kgo.RecordDeliveryTimeout(messageTimeout),
	}

	if cfg.SASLUsername != "" && cfg.SASLPassword != "" {
		auth := scram.Auth{User: cfg.SASLUsername, Pass: cfg.SASLPassword}
		opts = append(opts,
			kgo.SASL(auth.AsSha512Mechanism()),
			kgo.DialTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
		)
	}

	return kgo.NewClient(opts...)
}

// Emit enqueues event without blocking the caller. If the producer
// channel is full the event is dropped and the drop is counted and
// logged — callers must not depend on billing events being delivered.
func (e *Emitter) Emit(event Event) {
	select {
	case e.events <- event:
	default:
		e.cfg.Metrics.Dropped.Inc()
		e.log.WithField("team_id", event.TeamID).Warn("dropped billing event: producer channel full")
	}
}

// Run drives the single consumer task until shutdown is triggered or ctx
// is done, then closes the underlying client.
func (e *Emitter) Run(ctx context.Context) {
	defer e.client.Close()

	for {
		select {
		case <-e.cfg.Shutdown.Done():
			e.log.Info("billing emitter received shutdown signal")
			return
		case <-ctx.Done():
			return
		case event := <-e.events:
			e.publish(ctx, event)
		}
	}
}

func (e *Emitter) publish(ctx context.Context, event Event) {
	start := time.Now()
	defer func() { e.cfg.Metrics.Duration.Observe(time.Since(start).Seconds()) }()

	partitionKey := "team-" + event.TeamID
	payload := envelope{
		Namespace: namespace,
		Records:   []record{{PartitionKey: partitionKey, Data: event}},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		e.cfg.Metrics.Errors.Inc()
		e.log.WithError(err).WithField("team_id", event.TeamID).Error("failed to serialise billing event")
		return
	}

	pctx, cancel := context.WithTimeout(ctx, e.cfg.QueueTimeout)
	defer cancel()

	rec := &kgo.Record{Topic: e.cfg.Topic, Key: []byte(partitionKey), Value: data}
	if err := e.client.ProduceSync(pctx, rec).FirstErr(); err != nil {
		e.cfg.Metrics.Errors.Inc()
		e.log.WithError(err).WithField("team_id", event.TeamID).Error("billing event publish failed")
		return
	}

	e.cfg.Metrics.Success.Inc()
}
