package api

import (
	"encoding/hex"
	"fmt"

	"QuorumCert/internal/entities"
	"QuorumCert/internal/multisigner"
)

// registerSignerRequest is the body of POST /register-signer.
type registerSignerRequest struct {
	PartyID         entities.PartyID `json:"party_id"`         // PartyID identifies the signer
	VerificationKey string           `json:"verification_key"` // VerificationKey is the hex BLS public key
	Stake           entities.Stake   `json:"stake"`            // Stake is the signer's voting weight
	Epoch           entities.Epoch   `json:"epoch,omitempty"`  // Epoch to register for, zero means current
}

// validate checks structural integrity before touching the registry.
func (r *registerSignerRequest) validate() error {
	if r.PartyID == "" {
		return fmt.Errorf("empty party_id")
	}

	key, err := hex.DecodeString(r.VerificationKey)
	if err != nil {
		return fmt.Errorf("verification_key is not valid hex")
	}

	if len(key) != multisigner.PublicKeySize {
		return fmt.Errorf("invalid verification_key size: got %d, want %d", len(key), multisigner.PublicKeySize)
	}

	if r.Stake == 0 {
		return fmt.Errorf("zero stake")
	}

	return nil
}

// registerSignatureRequest is the body of POST /register-signatures.
type registerSignatureRequest struct {
	PartyID    entities.PartyID `json:"party_id"`    // PartyID identifies the signer
	Signature  string           `json:"signature"`   // Signature is the hex BLS signature
	WonIndexes []uint64         `json:"won_indexes"` // WonIndexes are the lottery indexes won by the signer
}

// toSingleSignature decodes the request into a single signature.
// The authentication status starts unauthenticated and is only promoted by
// the node's own verification.
func (r *registerSignatureRequest) toSingleSignature() (*entities.SingleSignature, error) {
	if r.PartyID == "" {
		return nil, fmt.Errorf("empty party_id")
	}

	signature, err := hex.DecodeString(r.Signature)
	if err != nil {
		return nil, fmt.Errorf("signature is not valid hex")
	}

	if len(signature) != multisigner.SignatureSize {
		return nil, fmt.Errorf("invalid signature size: got %d, want %d", len(signature), multisigner.SignatureSize)
	}

	return &entities.SingleSignature{
		PartyID:              r.PartyID,
		Signature:            signature,
		WonIndexes:           r.WonIndexes,
		AuthenticationStatus: entities.Unauthenticated,
	}, nil
}
