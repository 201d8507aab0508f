package multisigner

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"QuorumCert/internal/entities"
)

// registerTestSigner registers a fresh keypair for a party and epoch.
func registerTestSigner(t *testing.T, s *Service, party entities.PartyID, epoch entities.Epoch, stake entities.Stake) *KeyPair {
	t.Helper()

	keys, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	err = s.RegisterSigner(epoch, entities.SignerWithStake{
		PartyID:         party,
		VerificationKey: hex.EncodeToString(keys.PublicKeyBytes()),
		Stake:           stake,
	})
	if err != nil {
		t.Fatalf("register %s: %v", party, err)
	}

	return keys
}

// TestRegisterSigner tests registration for the current and next epoch.
func TestRegisterSigner(t *testing.T) {
	s := New(5)

	registerTestSigner(t, s, "party-1", 5, 10)
	registerTestSigner(t, s, "party-2", 6, 20)

	current, err := s.SignersWithStake(5)
	if err != nil {
		t.Fatalf("signers for epoch 5: %v", err)
	}

	if len(current) != 1 || current[0].PartyID != "party-1" {
		t.Error("epoch 5 should hold only party-1")
	}

	next, err := s.SignersWithStake(6)
	if err != nil {
		t.Fatalf("signers for epoch 6: %v", err)
	}

	if len(next) != 1 || next[0].PartyID != "party-2" {
		t.Error("epoch 6 should hold only party-2")
	}
}

// TestRegisterSignerDuplicate tests the duplicate registration error.
func TestRegisterSignerDuplicate(t *testing.T) {
	s := New(5)

	keys := registerTestSigner(t, s, "party-1", 5, 10)

	err := s.RegisterSigner(5, entities.SignerWithStake{
		PartyID:         "party-1",
		VerificationKey: hex.EncodeToString(keys.PublicKeyBytes()),
		Stake:           10,
	})

	if !errors.Is(err, ErrExistingSigner) {
		t.Errorf("duplicate registration: got %v, want ErrExistingSigner", err)
	}
}

// TestRegisterSignerBadInput tests that key and epoch validation yields
// registration rejections, not infrastructure errors.
func TestRegisterSignerBadInput(t *testing.T) {
	s := New(5)

	err := s.RegisterSigner(5, entities.SignerWithStake{PartyID: "p", VerificationKey: "zz", Stake: 1})
	if err == nil {
		t.Error("non-hex key should be rejected")
	} else if !IsRegistrationFailure(err) {
		t.Errorf("non-hex key should be a registration failure, got %v", err)
	}

	err = s.RegisterSigner(5, entities.SignerWithStake{PartyID: "p", VerificationKey: "aabb", Stake: 1})
	if err == nil {
		t.Error("short key should be rejected")
	} else if !IsRegistrationFailure(err) {
		t.Errorf("short key should be a registration failure, got %v", err)
	}

	keys, _ := GenerateKeyPair()

	err = s.RegisterSigner(7, entities.SignerWithStake{
		PartyID:         "p",
		VerificationKey: hex.EncodeToString(keys.PublicKeyBytes()),
		Stake:           1,
	})
	if err == nil {
		t.Error("epoch beyond next should be rejected")
	} else if !IsRegistrationFailure(err) {
		t.Errorf("out-of-window epoch should be a registration failure, got %v", err)
	}
}

// TestVerifySingleSignature tests verification against the current epoch.
func TestVerifySingleSignature(t *testing.T) {
	s := New(5)
	keys := registerTestSigner(t, s, "party-1", 5, 10)

	message := "signed-message"
	signature := &entities.SingleSignature{
		PartyID:   "party-1",
		Signature: keys.Sign([]byte(message)),
	}

	if err := s.VerifySingleSignature(message, signature); err != nil {
		t.Errorf("valid signature should verify: %v", err)
	}

	if err := s.VerifySingleSignature("other-message", signature); err == nil {
		t.Error("signature over another message should not verify")
	} else if !IsVerificationFailure(err) {
		t.Errorf("mismatch should be a verification failure, got %v", err)
	}
}

// TestVerifyUnknownParty tests that an unregistered party is a
// verification failure, not an infrastructure error.
func TestVerifyUnknownParty(t *testing.T) {
	s := New(5)
	keys, _ := GenerateKeyPair()

	signature := &entities.SingleSignature{
		PartyID:   "ghost",
		Signature: keys.Sign([]byte("message")),
	}

	err := s.VerifySingleSignature("message", signature)
	if err == nil {
		t.Fatal("unknown party should not verify")
	}

	if !IsVerificationFailure(err) {
		t.Errorf("unknown party should be a verification failure, got %v", err)
	}
}

// TestVerifyNextEpoch tests the next-epoch verification path.
func TestVerifyNextEpoch(t *testing.T) {
	s := New(5)
	keys := registerTestSigner(t, s, "party-1", 6, 10)

	message := "signed-message"
	signature := &entities.SingleSignature{
		PartyID:   "party-1",
		Signature: keys.Sign([]byte(message)),
	}

	if err := s.VerifySingleSignature(message, signature); err == nil {
		t.Error("party registered for next epoch should not verify against current")
	}

	if err := s.VerifySingleSignatureForNextEpoch(message, signature); err != nil {
		t.Errorf("next-epoch verification should succeed: %v", err)
	}
}

// TestRotateEpoch tests that rotation promotes the next distribution.
func TestRotateEpoch(t *testing.T) {
	s := New(5)
	keys := registerTestSigner(t, s, "party-1", 6, 10)

	epoch := s.RotateEpoch()
	if epoch != 6 {
		t.Errorf("rotated epoch: got %d, want 6", epoch)
	}

	if s.CurrentEpoch() != 6 {
		t.Errorf("current epoch: got %d, want 6", s.CurrentEpoch())
	}

	message := "signed-message"
	signature := &entities.SingleSignature{
		PartyID:   "party-1",
		Signature: keys.Sign([]byte(message)),
	}

	if err := s.VerifySingleSignature(message, signature); err != nil {
		t.Errorf("promoted signer should verify against current epoch: %v", err)
	}

	next, err := s.SignersWithStake(7)
	if err != nil {
		t.Fatalf("signers for epoch 7: %v", err)
	}

	if len(next) != 0 {
		t.Error("fresh next distribution should be empty")
	}
}

// TestStakeDistribution tests the stake view and its total.
func TestStakeDistribution(t *testing.T) {
	s := New(5)
	registerTestSigner(t, s, "party-1", 5, 10)
	registerTestSigner(t, s, "party-2", 5, 30)

	distribution, err := s.StakeDistribution(5)
	if err != nil {
		t.Fatalf("stake distribution: %v", err)
	}

	if distribution.TotalStake() != 40 {
		t.Errorf("total stake: got %d, want 40", distribution.TotalStake())
	}

	if distribution["party-2"] != 30 {
		t.Errorf("party-2 stake: got %d, want 30", distribution["party-2"])
	}
}

// TestAggregateVerificationKey tests the AVK over registered keys.
func TestAggregateVerificationKey(t *testing.T) {
	s := New(5)

	if _, err := s.AggregateVerificationKey(5); err == nil {
		t.Error("empty distribution should have no AVK")
	}

	registerTestSigner(t, s, "party-1", 5, 10)
	registerTestSigner(t, s, "party-2", 5, 20)

	avk, err := s.AggregateVerificationKey(5)
	if err != nil {
		t.Fatalf("aggregate verification key: %v", err)
	}

	raw, err := hex.DecodeString(avk)
	if err != nil {
		t.Fatalf("AVK should be hex: %v", err)
	}

	if len(raw) != PublicKeySize {
		t.Errorf("AVK size: got %d, want %d", len(raw), PublicKeySize)
	}
}

// TestQuorumReached tests the stake-weighted quorum predicate.
func TestQuorumReached(t *testing.T) {
	s := New(5)

	for i, stake := range []entities.Stake{10, 20, 30, 40} {
		registerTestSigner(t, s, entities.PartyID(fmt.Sprintf("party-%d", i)), 5, stake)
	}

	// party-2 and party-3 carry 70 of 100 total stake.
	reached, err := s.QuorumReached(5, []entities.PartyID{"party-2", "party-3"}, 67)
	if err != nil {
		t.Fatalf("quorum: %v", err)
	}

	if !reached {
		t.Error("70% of stake should reach a 67% quorum")
	}

	reached, err = s.QuorumReached(5, []entities.PartyID{"party-0", "party-1"}, 67)
	if err != nil {
		t.Fatalf("quorum: %v", err)
	}

	if reached {
		t.Error("30% of stake should not reach a 67% quorum")
	}

	// Unknown parties carry no stake.
	reached, err = s.QuorumReached(5, []entities.PartyID{"ghost"}, 67)
	if err != nil {
		t.Fatalf("quorum: %v", err)
	}

	if reached {
		t.Error("unknown parties should not reach quorum")
	}
}

// TestQuorumLargeStakes tests the quorum predicate with stakes whose
// cross-multiplied products exceed uint64.
func TestQuorumLargeStakes(t *testing.T) {
	s := New(5)

	for i := 0; i < 3; i++ {
		registerTestSigner(t, s, entities.PartyID(fmt.Sprintf("party-%d", i)), 5, 1<<62)
	}

	reached, err := s.QuorumReached(5, []entities.PartyID{"party-0", "party-1"}, 50)
	if err != nil {
		t.Fatalf("quorum: %v", err)
	}

	if !reached {
		t.Error("two thirds of a huge total stake should reach a 50% quorum")
	}

	reached, err = s.QuorumReached(5, []entities.PartyID{"party-0"}, 50)
	if err != nil {
		t.Fatalf("quorum: %v", err)
	}

	if reached {
		t.Error("one third of a huge total stake should not reach a 50% quorum")
	}
}

// TestQuorumEmptyDistribution tests that an empty distribution never
// reaches quorum.
func TestQuorumEmptyDistribution(t *testing.T) {
	s := New(5)

	reached, err := s.QuorumReached(5, nil, 67)
	if err != nil {
		t.Fatalf("quorum: %v", err)
	}

	if reached {
		t.Error("empty distribution should not reach quorum")
	}
}
