package stream

import (
	"context"
	"time"
)

// Delivery is a single payload pulled from the substrate, or a transient
// fetch error observed while pulling the next batch. Payload is empty
// whenever Err is non-nil.
type Delivery struct {
	Payload []byte
	Err     error
}

// ConsumerOptions configures the ordered pull consumer a Worker opens
// against the substrate.
type ConsumerOptions struct {
	// MaxBatch caps how many messages a single Fetch call returns.
	MaxBatch int
	// MaxExpires bounds how long a Fetch call waits for at least one
	// message before returning an empty, non-error batch.
	MaxExpires time.Duration
}

// Consumer is an ephemeral, single-reader ordered pull consumer: the
// substrate guarantees in-order delivery to this one reader and
// redelivers from its own last checkpoint on error, so the worker never
// needs to resequence.
type Consumer interface {
	// Next blocks until a batch is available, the fetch wait window
	// elapses (an empty batch with ok true), ctx is done, or the
	// consumer's underlying subscription ends. ok is false when ctx is
	// done or the consumer has nothing further to yield; callers should
	// stop calling Next once ok is false.
	Next(ctx context.Context) (deliveries []Delivery, ok bool)
	// Close releases the consumer's resources.
	Close() error
}

// Substrate opens ordered pull consumers against named streams. The NATS
// JetStream implementation lives in nats.go; tests use an in-memory fake.
type Substrate interface {
	OrderedConsumer(ctx context.Context, streamName string, opts ConsumerOptions) (Consumer, error)
}
