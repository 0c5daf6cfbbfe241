// Package codec defines the decode contract between the stream worker and
// the plugin sink. The wire format itself is an external concern (spec'd
// only as "whatever the substrate's payload is, verbatim"); this package
// supplies one concrete, deterministic implementation so the rest of the
// pipeline is testable without a real plugin wire format.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/teranos/nats-geyser-runner/internal/streamkind"
)

// AccountMessage is the typed payload for streamkind.Account.
type AccountMessage struct {
	Pubkey       string `json:"pubkey"`
	Owner        string `json:"owner"`
	Lamports     uint64 `json:"lamports"`
	Slot         uint64 `json:"slot"`
	WriteVersion uint64 `json:"write_version"`
	Data         []byte `json:"data"`
}

// SlotMessage is the typed payload for streamkind.Slot.
type SlotMessage struct {
	Slot   uint64 `json:"slot"`
	Parent uint64 `json:"parent"`
	Status string `json:"status"`
}

// TransactionMessage is the typed payload for streamkind.Transaction.
type TransactionMessage struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	IsVote    bool   `json:"is_vote"`
	Index     uint64 `json:"index"`
}

// EntryMessage is the typed payload for streamkind.Entry.
type EntryMessage struct {
	Slot            uint64 `json:"slot"`
	Index           uint64 `json:"index"`
	NumHashes       uint64 `json:"num_hashes"`
	ExecutedTxCount uint64 `json:"executed_transaction_count"`
}

// BlockMetadataMessage is the typed payload for streamkind.BlockMetadata.
type BlockMetadataMessage struct {
	Slot        uint64 `json:"slot"`
	Blockhash   string `json:"blockhash"`
	BlockTime   int64  `json:"block_time"`
	BlockHeight uint64 `json:"block_height"`
}

// TypedMessage is the tagged union the codec decodes into. Exactly one of
// the typed fields is populated, selected by Kind.
type TypedMessage struct {
	Kind          streamkind.Kind
	Account       *AccountMessage
	Slot          *SlotMessage
	Transaction   *TransactionMessage
	Entry         *EntryMessage
	BlockMetadata *BlockMetadataMessage
}

// Codec decodes a raw substrate payload into a TypedMessage. Implementations
// must be total, pure, and deterministic: the same (kind, bytes) pair
// always decodes to the same result. No framing is added by the worker;
// the substrate's payload is the codec's input verbatim.
type Codec interface {
	Decode(kind streamkind.Kind, payload []byte) (TypedMessage, error)
}

// JSONCodec decodes payloads encoded as plain JSON objects, one struct
// shape per streamkind.Kind. It is the reference codec used when no other
// wire format is supplied.
type JSONCodec struct{}

// NewJSONCodec returns a ready-to-use JSONCodec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Decode implements Codec.
func (JSONCodec) Decode(kind streamkind.Kind, payload []byte) (TypedMessage, error) {
	msg := TypedMessage{Kind: kind}

	switch kind {
	case streamkind.Account:
		var m AccountMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return TypedMessage{}, fmt.Errorf("decode account message: %w", err)
		}
		msg.Account = &m
	case streamkind.Slot:
		var m SlotMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return TypedMessage{}, fmt.Errorf("decode slot message: %w", err)
		}
		msg.Slot = &m
	case streamkind.Transaction:
		var m TransactionMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return TypedMessage{}, fmt.Errorf("decode transaction message: %w", err)
		}
		msg.Transaction = &m
	case streamkind.Entry:
		var m EntryMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return TypedMessage{}, fmt.Errorf("decode entry message: %w", err)
		}
		msg.Entry = &m
	case streamkind.BlockMetadata:
		var m BlockMetadataMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return TypedMessage{}, fmt.Errorf("decode block metadata message: %w", err)
		}
		msg.BlockMetadata = &m
	default:
		return TypedMessage{}, fmt.Errorf("decode: unknown stream kind %v", kind)
	}

	return msg, nil
}
