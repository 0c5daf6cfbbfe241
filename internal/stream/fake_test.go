package stream

import (
	"context"
	"sync"

	"github.com/teranos/nats-geyser-runner/internal/codec"
)

// fakeConsumer replays a fixed sequence of batches, then blocks until ctx
// is cancelled — it never fabricates extra deliveries once its script is
// exhausted, which is what lets tests assert exact counts.
type fakeConsumer struct {
	mu       sync.Mutex
	batches  [][]Delivery
	idx      int
	onDrain  func()
	drainedO sync.Once
}

func (f *fakeConsumer) Next(ctx context.Context) ([]Delivery, bool) {
	f.mu.Lock()
	if f.idx < len(f.batches) {
		b := f.batches[f.idx]
		f.idx++
		f.mu.Unlock()
		return b, true
	}
	f.mu.Unlock()

	if f.onDrain != nil {
		f.drainedO.Do(f.onDrain)
	}

	<-ctx.Done()
	return nil, false
}

func (f *fakeConsumer) Close() error { return nil }

type fakeSubstrate struct {
	consumer *fakeConsumer
}

func (f *fakeSubstrate) OrderedConsumer(ctx context.Context, streamName string, opts ConsumerOptions) (Consumer, error) {
	return f.consumer, nil
}

// fakeCodec decodes every payload into an AccountMessage whose Pubkey is
// the payload verbatim, regardless of kind — tests only exercise Account
// kind and care about order, not the real wire format.
type fakeCodec struct{}

func (fakeCodec) Decode(kind Kind, payload []byte) (codec.TypedMessage, error) {
	return codec.TypedMessage{
		Kind:    kind,
		Account: &codec.AccountMessage{Pubkey: string(payload)},
	}, nil
}
