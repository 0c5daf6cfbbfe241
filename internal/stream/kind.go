// Package stream implements the per-stream-kind fetch/decode/dispatch
// pipeline that bridges an ordered NATS JetStream pull consumer into the
// plugin sink.
package stream

import "github.com/teranos/nats-geyser-runner/internal/streamkind"

// Kind re-exports streamkind.Kind so callers of this package never need
// to import internal/streamkind directly.
type Kind = streamkind.Kind

// The five fixed stream kinds, re-exported from internal/streamkind.
const (
	Account       = streamkind.Account
	Slot          = streamkind.Slot
	Transaction   = streamkind.Transaction
	Entry         = streamkind.Entry
	BlockMetadata = streamkind.BlockMetadata
)

// Kinds lists all stream kinds in the fixed order the supervisor starts
// them in.
var Kinds = streamkind.Kinds
