package stream

import "testing"

// With a producer faster than the consumer and capacity C, after N sends
// at most C items are ever in flight and the number of drops is
// max(0, N-delivered-C): spec.md §8's queue invariant, exercised directly
// against the bounded queue with nothing draining it.
func TestBoundedQueueDropsOnBackpressure(t *testing.T) {
	q := newBoundedQueue(2)

	var accepted, dropped int
	for i := 0; i < 5; i++ {
		if q.TryEnqueue(RawMessage{Kind: Account, Payload: []byte{byte(i)}}) {
			accepted++
		} else {
			dropped++
		}
	}

	if accepted != 2 {
		t.Fatalf("accepted = %d, want 2", accepted)
	}
	if dropped != 3 {
		t.Fatalf("dropped = %d, want 3", dropped)
	}
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}

	first := <-q.ch
	second := <-q.ch
	if first.Payload[0] != 0 || second.Payload[0] != 1 {
		t.Fatalf("drained out of order: got %v, %v", first.Payload, second.Payload)
	}
}

func TestBoundedQueueDefaultsCapacityToOne(t *testing.T) {
	q := newBoundedQueue(0)
	if !q.TryEnqueue(RawMessage{}) {
		t.Fatal("expected first enqueue on zero-capacity queue to succeed (capacity defaults to 1)")
	}
	if q.TryEnqueue(RawMessage{}) {
		t.Fatal("expected second enqueue to be dropped")
	}
}
