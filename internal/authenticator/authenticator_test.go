package authenticator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"QuorumCert/internal/entities"
	"QuorumCert/internal/multisigner"
)

// fakeMultiSigner answers verification calls with canned results.
type fakeMultiSigner struct {
	currentErr error // currentErr is returned for the current epoch
	nextErr    error // nextErr is returned for the next epoch

	currentCalls int
	nextCalls    int
}

func (f *fakeMultiSigner) VerifySingleSignature(signedMessage string, signature *entities.SingleSignature) error {
	f.currentCalls++
	return f.currentErr
}

func (f *fakeMultiSigner) VerifySingleSignatureForNextEpoch(signedMessage string, signature *entities.SingleSignature) error {
	f.nextCalls++
	return f.nextErr
}

// mismatch builds a verification failure for a party.
func mismatch(party entities.PartyID, epoch entities.Epoch) error {
	return &multisigner.VerificationError{PartyID: party, Epoch: epoch, Reason: "signature does not match"}
}

// testSignature builds an unauthenticated signature for one party.
func testSignature() *entities.SingleSignature {
	return &entities.SingleSignature{
		PartyID:   "party-1",
		Signature: []byte{0x01, 0x02},
	}
}

// TestAuthenticateCurrentEpoch tests the first verification path.
func TestAuthenticateCurrentEpoch(t *testing.T) {
	signer := &fakeMultiSigner{}
	auth := New(signer)

	signature := testSignature()

	if err := auth.Authenticate(context.Background(), signature, "message"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if signature.AuthenticationStatus != entities.Authenticated {
		t.Error("signature should be authenticated for the current epoch")
	}

	if signer.nextCalls != 0 {
		t.Error("next-epoch verification should not run after a current-epoch match")
	}
}

// TestAuthenticateNextEpochFallback tests the epoch-boundary fallback.
func TestAuthenticateNextEpochFallback(t *testing.T) {
	signer := &fakeMultiSigner{currentErr: mismatch("party-1", 5)}
	auth := New(signer)

	signature := testSignature()

	if err := auth.Authenticate(context.Background(), signature, "message"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if signature.AuthenticationStatus != entities.Authenticated {
		t.Error("signature should authenticate against the next epoch")
	}

	if signer.currentCalls != 1 || signer.nextCalls != 1 {
		t.Errorf("verification calls: current %d next %d, want 1 and 1", signer.currentCalls, signer.nextCalls)
	}
}

// TestAuthenticateBothEpochsFail tests the unauthenticated outcome.
func TestAuthenticateBothEpochsFail(t *testing.T) {
	signer := &fakeMultiSigner{
		currentErr: mismatch("party-1", 5),
		nextErr:    mismatch("party-1", 6),
	}
	auth := New(signer)

	signature := testSignature()

	if err := auth.Authenticate(context.Background(), signature, "message"); err != nil {
		t.Fatalf("verification mismatch is an outcome, not an error: %v", err)
	}

	if signature.AuthenticationStatus != entities.Unauthenticated {
		t.Error("signature failing both epochs should be unauthenticated")
	}
}

// TestAuthenticateDemotesStaleStatus tests that a previously authenticated
// signature is demoted when the current check fails.
func TestAuthenticateDemotesStaleStatus(t *testing.T) {
	signer := &fakeMultiSigner{
		currentErr: mismatch("party-1", 5),
		nextErr:    mismatch("party-1", 6),
	}
	auth := New(signer)

	signature := testSignature()
	signature.AuthenticationStatus = entities.Authenticated

	if err := auth.Authenticate(context.Background(), signature, "message"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if signature.AuthenticationStatus != entities.Unauthenticated {
		t.Error("stale authenticated status must be demoted on re-check")
	}
}

// TestAuthenticateInfrastructureFailure tests that a non-verification
// failure propagates without touching the status.
func TestAuthenticateInfrastructureFailure(t *testing.T) {
	infraErr := fmt.Errorf("key registry unavailable")
	signer := &fakeMultiSigner{currentErr: infraErr}
	auth := New(signer)

	signature := testSignature()
	signature.AuthenticationStatus = entities.Authenticated

	err := auth.Authenticate(context.Background(), signature, "message")
	if err == nil {
		t.Fatal("infrastructure failure should propagate as an error")
	}

	if !errors.Is(err, infraErr) {
		t.Errorf("propagated error should wrap the failure, got %v", err)
	}

	if signature.AuthenticationStatus != entities.Authenticated {
		t.Error("status must stay untouched when authentication could not run")
	}

	if signer.nextCalls != 0 {
		t.Error("next-epoch verification should not run after an infrastructure failure")
	}
}

// TestAuthenticateNextEpochInfrastructureFailure tests propagation from
// the fallback path.
func TestAuthenticateNextEpochInfrastructureFailure(t *testing.T) {
	infraErr := fmt.Errorf("key registry unavailable")
	signer := &fakeMultiSigner{
		currentErr: mismatch("party-1", 5),
		nextErr:    infraErr,
	}
	auth := New(signer)

	signature := testSignature()

	err := auth.Authenticate(context.Background(), signature, "message")
	if err == nil {
		t.Fatal("infrastructure failure on the fallback path should propagate")
	}

	if !errors.Is(err, infraErr) {
		t.Errorf("propagated error should wrap the failure, got %v", err)
	}
}

// TestAuthenticateCancelled tests that a cancelled context aborts the check.
func TestAuthenticateCancelled(t *testing.T) {
	signer := &fakeMultiSigner{}
	auth := New(signer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	signature := testSignature()

	if err := auth.Authenticate(ctx, signature, "message"); err == nil {
		t.Error("cancelled context should abort authentication")
	}

	if signer.currentCalls != 0 {
		t.Error("cancelled authentication should not verify anything")
	}
}
