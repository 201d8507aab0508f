package multisigner

import (
	"bytes"
	"testing"
)

// TestBLSSignVerify tests basic sign and verify.
func TestBLSSignVerify(t *testing.T) {
	keys, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	message := []byte("certify me")
	signature := keys.Sign(message)

	if len(signature) != SignatureSize {
		t.Errorf("signature size: got %d, want %d", len(signature), SignatureSize)
	}

	if !VerifySignature(signature, message, keys.PublicKeyBytes()) {
		t.Error("valid signature should verify")
	}
}

// TestBLSVerifyWrongMessage tests verification with the wrong message.
func TestBLSVerifyWrongMessage(t *testing.T) {
	keys, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	signature := keys.Sign([]byte("message"))

	if VerifySignature(signature, []byte("other message"), keys.PublicKeyBytes()) {
		t.Error("signature should not verify with wrong message")
	}
}

// TestBLSVerifyWrongKey tests verification with the wrong key.
func TestBLSVerifyWrongKey(t *testing.T) {
	keys1, _ := GenerateKeyPair()
	keys2, _ := GenerateKeyPair()

	message := []byte("message")
	signature := keys1.Sign(message)

	if VerifySignature(signature, message, keys2.PublicKeyBytes()) {
		t.Error("signature should not verify with wrong key")
	}
}

// TestBLSDeterministicKey tests that a seed produces deterministic keys.
func TestBLSDeterministicKey(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}

	keys1, err := KeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("derive keypair: %v", err)
	}

	keys2, err := KeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("derive keypair: %v", err)
	}

	if !bytes.Equal(keys1.PublicKeyBytes(), keys2.PublicKeyBytes()) {
		t.Error("same seed should produce the same key")
	}

	if _, err := KeyPairFromSeed([]byte("short")); err == nil {
		t.Error("short seed should be rejected")
	}
}

// TestBLSAggregation tests aggregating signatures over one message.
func TestBLSAggregation(t *testing.T) {
	const numSigners = 5

	message := []byte("aggregate me")
	sigs := make([][]byte, numSigners)
	pubkeys := make([][]byte, numSigners)

	for i := 0; i < numSigners; i++ {
		keys, err := GenerateKeyPair()
		if err != nil {
			t.Fatalf("generate keypair %d: %v", i, err)
		}

		sigs[i] = keys.Sign(message)
		pubkeys[i] = keys.PublicKeyBytes()
	}

	agg, err := AggregateSignatures(sigs)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if len(agg) != SignatureSize {
		t.Errorf("aggregate size: got %d, want %d", len(agg), SignatureSize)
	}

	if !VerifyAggregated(agg, message, pubkeys) {
		t.Error("aggregate signature should verify against all public keys")
	}

	if VerifyAggregated(agg, message, pubkeys[:numSigners-1]) {
		t.Error("aggregate should not verify with a missing public key")
	}
}

// TestBLSAggregationEmpty tests that empty input is rejected.
func TestBLSAggregationEmpty(t *testing.T) {
	if _, err := AggregateSignatures(nil); err == nil {
		t.Error("empty signature set should be rejected")
	}

	if _, err := AggregatePublicKeys(nil); err == nil {
		t.Error("empty key set should be rejected")
	}
}
