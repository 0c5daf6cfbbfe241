package conn

import (
	"sync/atomic"

	"github.com/teranos/nats-geyser-runner/internal/shutdown"
)

// sender is the per-tenant shutdown broadcast: one tenant, one sender,
// shared by every live Token for that tenant. observers tracks how many
// tokens currently hold a reference, so the manager knows when it is
// safe to drop the map entry.
type sender struct {
	broadcast *shutdown.Broadcast
	observers int32
}

func newSender() *sender {
	return &sender{broadcast: shutdown.NewBroadcast()}
}

func (s *sender) subscribe() int32 {
	return atomic.AddInt32(&s.observers, 1)
}

// release decrements the observer count and returns the count remaining
// after the decrement.
func (s *sender) release() int32 {
	return atomic.AddInt32(&s.observers, -1)
}

func (s *sender) count() int32 {
	return atomic.LoadInt32(&s.observers)
}

func (s *sender) trigger() {
	s.broadcast.Trigger()
}

func (s *sender) done() <-chan struct{} {
	return s.broadcast.Done()
}
