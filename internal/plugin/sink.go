// Package plugin defines the (external) observer-plugin contract the
// stream workers dispatch into, and supplies a reference sink used by
// tests and by operators who haven't wired a real downstream plugin yet.
// The plugin's own gRPC/Prometheus fan-out is explicitly out of scope for
// this repository: Sink is the only surface this module depends on.
package plugin

import (
	"fmt"

	"github.com/teranos/nats-geyser-runner/internal/codec"
)

// Sink is the observer plugin's ingestion surface. Every method is
// fallible and must not block the caller indefinitely: the stream worker
// that calls into it treats any error as non-fatal and never retries.
type Sink interface {
	UpdateAccount(msg *codec.AccountMessage) error
	UpdateSlotStatus(msg *codec.SlotMessage) error
	NotifyTransaction(msg *codec.TransactionMessage) error
	NotifyEntry(msg *codec.EntryMessage) error
	NotifyBlockMetadata(msg *codec.BlockMetadataMessage) error
}

// Dispatch routes a decoded TypedMessage to the matching Sink method,
// chosen by which typed field is populated (msg.Kind is only used in the
// error for an empty message). It is the one place that maps a decoded
// message to a Sink call, mirroring the dispatcher the original
// implementation kept as free functions per kind.
func Dispatch(sink Sink, msg codec.TypedMessage) error {
	switch {
	case msg.Account != nil:
		return sink.UpdateAccount(msg.Account)
	case msg.Slot != nil:
		return sink.UpdateSlotStatus(msg.Slot)
	case msg.Transaction != nil:
		return sink.NotifyTransaction(msg.Transaction)
	case msg.Entry != nil:
		return sink.NotifyEntry(msg.Entry)
	case msg.BlockMetadata != nil:
		return sink.NotifyBlockMetadata(msg.BlockMetadata)
	default:
		return fmt.Errorf("dispatch: empty typed message for kind %v", msg.Kind)
	}
}
