package plugin

import (
	log "github.com/sirupsen/logrus"

	"github.com/teranos/nats-geyser-runner/internal/codec"
)

// LoggingSink is a reference Sink implementation standing in for "the
// plugin's downstream gRPC fan-out", which stays external to this
// repository. It logs each call and, if Forward is non-nil, also pushes
// the typed message onto it — tests use Forward to assert dispatch order
// without needing a real plugin process.
type LoggingSink struct {
	log     *log.Entry
	Forward chan<- codec.TypedMessage
}

// NewLoggingSink returns a LoggingSink that logs through logger and,
// optionally, forwards every dispatched message onto forward. forward may
// be nil.
func NewLoggingSink(logger *log.Entry, forward chan<- codec.TypedMessage) *LoggingSink {
	return &LoggingSink{log: logger.WithField("component", "plugin-sink"), Forward: forward}
}

func (s *LoggingSink) forward(kind string, msg codec.TypedMessage) error {
	s.log.WithField("kind", kind).Debug("dispatched message to plugin sink")
	if s.Forward != nil {
		s.Forward <- msg
	}
	return nil
}

// UpdateAccount implements Sink.
func (s *LoggingSink) UpdateAccount(msg *codec.AccountMessage) error {
	return s.forward("account", codec.TypedMessage{Account: msg})
}

// UpdateSlotStatus implements Sink.
func (s *LoggingSink) UpdateSlotStatus(msg *codec.SlotMessage) error {
	return s.forward("slot", codec.TypedMessage{Slot: msg})
}

// NotifyTransaction implements Sink.
func (s *LoggingSink) NotifyTransaction(msg *codec.TransactionMessage) error {
	return s.forward("transaction", codec.TypedMessage{Transaction: msg})
}

// NotifyEntry implements Sink.
func (s *LoggingSink) NotifyEntry(msg *codec.EntryMessage) error {
	return s.forward("entry", codec.TypedMessage{Entry: msg})
}

// NotifyBlockMetadata implements Sink.
func (s *LoggingSink) NotifyBlockMetadata(msg *codec.BlockMetadataMessage) error {
	return s.forward("block_metadata", codec.TypedMessage{BlockMetadata: msg})
}
