package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSSubstrate implements Substrate over a real NATS JetStream
// connection, opening a fresh ephemeral ordered pull consumer per call —
// consumer state is never persisted across restarts (spec Non-goal).
type NATSSubstrate struct {
	js nats.JetStreamContext
}

// NewNATSSubstrate wraps an already-connected JetStreamContext.
func NewNATSSubstrate(js nats.JetStreamContext) *NATSSubstrate {
	return &NATSSubstrate{js: js}
}

// OrderedConsumer implements Substrate.
func (s *NATSSubstrate) OrderedConsumer(ctx context.Context, streamName string, opts ConsumerOptions) (Consumer, error) {
	subOpts := []nats.SubOpt{
		nats.OrderedConsumer(),
		nats.BindStream(streamName),
	}

	sub, err := s.js.PullSubscribe("", "", subOpts...)
	if err != nil {
		return nil, fmt.Errorf("open ordered pull consumer on %q: %w", streamName, err)
	}

	return &natsConsumer{sub: sub, opts: opts}, nil
}

type natsConsumer struct {
	sub  *nats.Subscription
	opts ConsumerOptions
}

func (c *natsConsumer) Next(ctx context.Context) ([]Delivery, bool) {
	maxWait := c.opts.MaxExpires
	if maxWait <= 0 {
		maxWait = 2 * time.Second
	}

	msgs, err := c.sub.Fetch(c.opts.MaxBatch, nats.MaxWait(maxWait), nats.Context(ctx))
	if err != nil {
		if err == nats.ErrTimeout || err == context.DeadlineExceeded {
			// No messages available within the wait window; not an error
			// condition worth surfacing to the fetch loop.
			return nil, true
		}
		if ctx.Err() != nil {
			return nil, false
		}
		return []Delivery{{Err: err}}, true
	}

	deliveries := make([]Delivery, 0, len(msgs))
	for _, m := range msgs {
		deliveries = append(deliveries, Delivery{Payload: m.Data})
		_ = m.Ack()
	}
	return deliveries, true
}

func (c *natsConsumer) Close() error {
	return c.sub.Unsubscribe()
}
