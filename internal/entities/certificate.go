package entities

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Certificate is a quorum-certified protocol message plus its epoch.
// It is produced by the certification pipeline once enough stake-weighted
// signatures have accumulated, and is read-only from then on.
type Certificate struct {
	Hash                     string           `json:"hash"`                       // Hash identifies the certificate
	PreviousHash             string           `json:"previous_hash"`              // PreviousHash chains certificates together
	Epoch                    Epoch            `json:"epoch"`                      // Epoch is the stake-distribution period of the certificate
	SignedEntityType         SignedEntityType `json:"signed_entity_type"`         // SignedEntityType identifies what was certified
	ProtocolMessage          *ProtocolMessage `json:"protocol_message"`           // ProtocolMessage is the certified keyed payload
	SignedMessage            string           `json:"signed_message"`             // SignedMessage is the hash of the protocol message the signers signed
	AggregateVerificationKey string           `json:"aggregate_verification_key"` // AggregateVerificationKey verifies the multi-signature
	MultiSignature           []byte           `json:"multi_signature"`            // MultiSignature is the aggregated BLS signature
}

// NewCertificate assembles a certificate and computes its hash and
// signed message from the protocol message.
func NewCertificate(previousHash string, entityType SignedEntityType, message *ProtocolMessage, avk string, multiSig []byte) *Certificate {
	cert := &Certificate{
		PreviousHash:             previousHash,
		Epoch:                    entityType.Epoch,
		SignedEntityType:         entityType,
		ProtocolMessage:          message,
		SignedMessage:            message.ComputeHash(),
		AggregateVerificationKey: avk,
		MultiSignature:           multiSig,
	}
	cert.Hash = cert.computeHash()

	return cert
}

// computeHash derives the certificate hash from its identifying fields.
func (c *Certificate) computeHash() string {
	h := blake3.New()
	h.Write([]byte(c.PreviousHash))
	h.Write([]byte(c.SignedEntityType.String()))
	h.Write([]byte(c.SignedMessage))
	h.Write([]byte(c.AggregateVerificationKey))
	h.Write(c.MultiSignature)

	var sum [32]byte
	h.Sum(sum[:0])

	return hex.EncodeToString(sum[:])
}
