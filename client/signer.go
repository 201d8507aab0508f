package client

import (
	"encoding/hex"
	"fmt"

	"QuorumCert/internal/entities"
	"QuorumCert/internal/multisigner"
)

// Signer is a client-side signing party: a BLS keypair plus the identity
// and stake it registers under.
type Signer struct {
	partyID entities.PartyID     // partyID identifies the signer
	stake   entities.Stake       // stake is the signer's voting weight
	keys    *multisigner.KeyPair // keys is the signer's BLS keypair
}

// NewSigner creates a signer with a fresh random keypair.
func NewSigner(partyID entities.PartyID, stake entities.Stake) (*Signer, error) {
	keys, err := multisigner.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate keypair for %s:\n%w", partyID, err)
	}

	return &Signer{partyID: partyID, stake: stake, keys: keys}, nil
}

// NewSignerFromSeed creates a signer with a deterministic keypair.
func NewSignerFromSeed(partyID entities.PartyID, stake entities.Stake, seed []byte) (*Signer, error) {
	keys, err := multisigner.KeyPairFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("derive keypair for %s:\n%w", partyID, err)
	}

	return &Signer{partyID: partyID, stake: stake, keys: keys}, nil
}

// PartyID returns the signer's identity.
func (s *Signer) PartyID() entities.PartyID {
	return s.partyID
}

// VerificationKey returns the hex-encoded BLS public key.
func (s *Signer) VerificationKey() string {
	return hex.EncodeToString(s.keys.PublicKeyBytes())
}

// Register registers the signer with the node for an epoch.
// A zero epoch registers for the node's current epoch.
func (s *Signer) Register(c *Client, epoch entities.Epoch) error {
	return c.RegisterSigner(epoch, entities.SignerWithStake{
		PartyID:         s.partyID,
		VerificationKey: s.VerificationKey(),
		Stake:           s.stake,
	})
}

// SignMessage produces a single signature over a round's signed message.
func (s *Signer) SignMessage(signedMessage string) *entities.SingleSignature {
	return &entities.SingleSignature{
		PartyID:   s.partyID,
		Signature: s.keys.Sign([]byte(signedMessage)),
	}
}

// SignOpenRound fetches the node's open round and submits a signature for
// it. Returns false without error when no round is open.
func (s *Signer) SignOpenRound(c *Client) (bool, error) {
	status, err := c.Status()
	if err != nil {
		return false, err
	}

	if status.OpenRoundMessage == "" {
		return false, nil
	}

	if err := c.RegisterSignature(s.SignMessage(status.OpenRoundMessage)); err != nil {
		return false, err
	}

	return true, nil
}
