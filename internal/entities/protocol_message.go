package entities

import (
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/zeebo/blake3"
)

// ProtocolMessagePartKey names a keyed part of a protocol message.
type ProtocolMessagePartKey string

const (
	// PartKeySnapshotDigest is the digest of the snapshot being certified.
	PartKeySnapshotDigest ProtocolMessagePartKey = "snapshot_digest"

	// PartKeyCardanoTransactionsMerkleRoot is the Merkle root committing to
	// the certified transaction set.
	PartKeyCardanoTransactionsMerkleRoot ProtocolMessagePartKey = "cardano_transactions_merkle_root"

	// PartKeyNextAggregateVerificationKey is the aggregate verification key
	// of the next epoch's stake distribution.
	PartKeyNextAggregateVerificationKey ProtocolMessagePartKey = "next_aggregate_verification_key"

	// PartKeyLatestBlockNumber is the highest block number covered by the
	// certified transaction set.
	PartKeyLatestBlockNumber ProtocolMessagePartKey = "latest_block_number"
)

// ProtocolMessage is the keyed payload that signers sign.
// Parts are populated upstream during signing; any part may be absent and
// callers must treat absence as a regular state, not a violation.
type ProtocolMessage struct {
	parts map[ProtocolMessagePartKey]string
}

// NewProtocolMessage creates an empty protocol message.
func NewProtocolMessage() *ProtocolMessage {
	return &ProtocolMessage{parts: make(map[ProtocolMessagePartKey]string)}
}

// SetPart sets the value of a message part, replacing any previous value.
func (m *ProtocolMessage) SetPart(key ProtocolMessagePartKey, value string) {
	if m.parts == nil {
		m.parts = make(map[ProtocolMessagePartKey]string)
	}

	m.parts[key] = value
}

// GetPart returns the value of a message part.
// The second return is false when the part is absent.
func (m *ProtocolMessage) GetPart(key ProtocolMessagePartKey) (string, bool) {
	value, ok := m.parts[key]
	return value, ok
}

// Len returns the number of populated parts.
func (m *ProtocolMessage) Len() int {
	return len(m.parts)
}

// ComputeHash returns the hex-encoded BLAKE3 hash of the message.
// Parts are hashed in key order so the hash is canonical.
func (m *ProtocolMessage) ComputeHash() string {
	keys := make([]string, 0, len(m.parts))
	for k := range m.parts {
		keys = append(keys, string(k))
	}

	sort.Strings(keys)

	h := blake3.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(m.parts[ProtocolMessagePartKey(k)]))
		h.Write([]byte{0})
	}

	var sum [32]byte
	h.Sum(sum[:0])

	return hex.EncodeToString(sum[:])
}

// MarshalJSON encodes the message as a flat JSON object.
// Go marshals map keys in sorted order, which makes the encoding canonical.
func (m *ProtocolMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.parts)
}

// UnmarshalJSON decodes a flat JSON object into the message.
func (m *ProtocolMessage) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.parts)
}

// Equal reports whether two messages carry the same parts.
func (m *ProtocolMessage) Equal(other *ProtocolMessage) bool {
	if len(m.parts) != len(other.parts) {
		return false
	}

	for k, v := range m.parts {
		if ov, ok := other.parts[k]; !ok || ov != v {
			return false
		}
	}

	return true
}
