// Package shutdown implements the single-publisher, many-subscriber
// shutdown signal every long-running task in the runner selects against.
package shutdown

import "sync"

// Broadcast is a fan-out shutdown signal. A single publisher calls
// Trigger once; every subscriber's Done channel closes at that point.
// The zero value is not usable — construct with NewBroadcast.
type Broadcast struct {
	once sync.Once
	ch   chan struct{}
}

// NewBroadcast returns a ready-to-use Broadcast.
func NewBroadcast() *Broadcast {
	return &Broadcast{ch: make(chan struct{})}
}

// Trigger fires the shutdown signal. Safe to call more than once or
// concurrently; only the first call has an effect.
func (b *Broadcast) Trigger() {
	b.once.Do(func() { close(b.ch) })
}

// Done returns a channel that closes when Trigger is called. Every
// subscriber receives the same channel, so every subscriber observes the
// same transition.
func (b *Broadcast) Done() <-chan struct{} {
	return b.ch
}
