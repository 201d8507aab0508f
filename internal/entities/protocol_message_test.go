package entities

import (
	"encoding/json"
	"testing"
)

// TestProtocolMessageParts tests setting and reading keyed parts.
func TestProtocolMessageParts(t *testing.T) {
	message := NewProtocolMessage()

	if _, ok := message.GetPart(PartKeySnapshotDigest); ok {
		t.Error("empty message should have no parts")
	}

	message.SetPart(PartKeySnapshotDigest, "digest-1")

	value, ok := message.GetPart(PartKeySnapshotDigest)
	if !ok {
		t.Fatal("part should exist after SetPart")
	}

	if value != "digest-1" {
		t.Errorf("part value: got %q, want %q", value, "digest-1")
	}

	message.SetPart(PartKeySnapshotDigest, "digest-2")

	value, _ = message.GetPart(PartKeySnapshotDigest)
	if value != "digest-2" {
		t.Errorf("overwritten part: got %q, want %q", value, "digest-2")
	}

	if message.Len() != 1 {
		t.Errorf("message length: got %d, want 1", message.Len())
	}
}

// TestProtocolMessageHashDeterministic tests that the hash ignores
// insertion order.
func TestProtocolMessageHashDeterministic(t *testing.T) {
	a := NewProtocolMessage()
	a.SetPart(PartKeySnapshotDigest, "digest")
	a.SetPart(PartKeyLatestBlockNumber, "100")

	b := NewProtocolMessage()
	b.SetPart(PartKeyLatestBlockNumber, "100")
	b.SetPart(PartKeySnapshotDigest, "digest")

	if a.ComputeHash() != b.ComputeHash() {
		t.Error("same parts in different order should hash the same")
	}

	b.SetPart(PartKeySnapshotDigest, "other")

	if a.ComputeHash() == b.ComputeHash() {
		t.Error("different part values should hash differently")
	}
}

// TestProtocolMessageEmptyHash tests that an empty message still hashes.
func TestProtocolMessageEmptyHash(t *testing.T) {
	message := NewProtocolMessage()

	if message.ComputeHash() == "" {
		t.Error("empty message should have a hash")
	}
}

// TestProtocolMessageJSONRoundTrip tests JSON encoding preserves parts.
func TestProtocolMessageJSONRoundTrip(t *testing.T) {
	message := NewProtocolMessage()
	message.SetPart(PartKeyCardanoTransactionsMerkleRoot, "root")
	message.SetPart(PartKeyNextAggregateVerificationKey, "avk")

	data, err := json.Marshal(message)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ProtocolMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !message.Equal(&decoded) {
		t.Error("decoded message should equal the original")
	}

	if message.ComputeHash() != decoded.ComputeHash() {
		t.Error("decoded message should hash the same")
	}
}
