package multisigner

import (
	"crypto/rand"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
)

const (
	// PublicKeySize is the size of a compressed BLS public key in bytes.
	PublicKeySize = 48

	// SignatureSize is the size of a compressed BLS signature in bytes.
	SignatureSize = 96
)

// dst is the domain separation tag for signatures in this protocol.
var dst = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// KeyPair holds a signer's BLS private/public key pair.
type KeyPair struct {
	secret *blst.SecretKey // secret is the private key
	public *blst.P1Affine  // public is the public key
}

// GenerateKeyPair creates a new BLS key pair from a random seed.
func GenerateKeyPair() (*KeyPair, error) {
	var ikm [32]byte
	if _, err := rand.Read(ikm[:]); err != nil {
		return nil, fmt.Errorf("generate random seed:\n%w", err)
	}

	return KeyPairFromSeed(ikm[:])
}

// KeyPairFromSeed creates a BLS key pair from a deterministic seed.
// The seed must be at least 32 bytes.
func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("seed must be at least 32 bytes")
	}

	secret := blst.KeyGen(seed)
	if secret == nil {
		return nil, fmt.Errorf("failed to generate BLS key")
	}

	return &KeyPair{
		secret: secret,
		public: new(blst.P1Affine).From(secret),
	}, nil
}

// Sign creates a BLS signature over the message.
func (k *KeyPair) Sign(message []byte) []byte {
	sig := new(blst.P2Affine).Sign(k.secret, message, dst)
	return sig.Compress()
}

// PublicKeyBytes returns the compressed public key bytes.
func (k *KeyPair) PublicKeyBytes() []byte {
	return k.public.Compress()
}

// VerifySignature checks a BLS signature against a message and public key.
func VerifySignature(signature, message, publicKey []byte) bool {
	if len(signature) != SignatureSize || len(publicKey) != PublicKeySize {
		return false
	}

	sig := new(blst.P2Affine).Uncompress(signature)
	if sig == nil {
		return false
	}

	pk := new(blst.P1Affine).Uncompress(publicKey)
	if pk == nil {
		return false
	}

	return sig.Verify(true, pk, true, message, dst)
}

// AggregateSignatures combines multiple BLS signatures into one.
// All signatures must be over the same message.
func AggregateSignatures(signatures [][]byte) ([]byte, error) {
	if len(signatures) == 0 {
		return nil, fmt.Errorf("no signatures to aggregate")
	}

	sigs := make([]*blst.P2Affine, len(signatures))

	for i, sigBytes := range signatures {
		if len(sigBytes) != SignatureSize {
			return nil, fmt.Errorf("invalid signature size at index %d", i)
		}

		sig := new(blst.P2Affine).Uncompress(sigBytes)
		if sig == nil {
			return nil, fmt.Errorf("invalid signature at index %d", i)
		}

		sigs[i] = sig
	}

	agg := new(blst.P2Aggregate)
	if !agg.Aggregate(sigs, true) {
		return nil, fmt.Errorf("signature aggregation failed")
	}

	return agg.ToAffine().Compress(), nil
}

// AggregatePublicKeys combines multiple compressed public keys into one
// aggregate verification key.
func AggregatePublicKeys(publicKeys [][]byte) ([]byte, error) {
	if len(publicKeys) == 0 {
		return nil, fmt.Errorf("no public keys to aggregate")
	}

	pks := make([]*blst.P1Affine, len(publicKeys))

	for i, pkBytes := range publicKeys {
		if len(pkBytes) != PublicKeySize {
			return nil, fmt.Errorf("invalid public key size at index %d", i)
		}

		pk := new(blst.P1Affine).Uncompress(pkBytes)
		if pk == nil {
			return nil, fmt.Errorf("invalid public key at index %d", i)
		}

		pks[i] = pk
	}

	agg := new(blst.P1Aggregate)
	if !agg.Aggregate(pks, true) {
		return nil, fmt.Errorf("public key aggregation failed")
	}

	return agg.ToAffine().Compress(), nil
}

// VerifyAggregated verifies an aggregated signature against a message and the
// aggregate of the signers' public keys.
func VerifyAggregated(signature, message []byte, publicKeys [][]byte) bool {
	if len(signature) != SignatureSize || len(publicKeys) == 0 {
		return false
	}

	sig := new(blst.P2Affine).Uncompress(signature)
	if sig == nil {
		return false
	}

	aggPk, err := AggregatePublicKeys(publicKeys)
	if err != nil {
		return false
	}

	pk := new(blst.P1Affine).Uncompress(aggPk)
	if pk == nil {
		return false
	}

	return sig.Verify(true, pk, true, message, dst)
}
