package entities

// AuthenticationStatus records whether a single signature has been verified
// against a known stake distribution. The status is recomputed on every
// authentication attempt; it is a derived fact, never a cache. A signature
// previously marked Authenticated is demoted if a later check fails.
type AuthenticationStatus uint8

const (
	// Unauthenticated means the signature has not passed verification.
	Unauthenticated AuthenticationStatus = iota

	// Authenticated means the signature verified against the current or
	// next epoch's stake distribution.
	Authenticated
)

// String returns the status name.
func (s AuthenticationStatus) String() string {
	if s == Authenticated {
		return "authenticated"
	}

	return "unauthenticated"
}

// SingleSignature is one signer's partial signature over a signed message.
// It is created by the signature-reception path with status Unauthenticated;
// the authenticator mutates AuthenticationStatus in place, exactly once per
// authentication attempt.
type SingleSignature struct {
	PartyID              PartyID              `json:"party_id"`    // PartyID identifies the signer
	Signature            []byte               `json:"signature"`   // Signature is the raw BLS signature payload
	WonIndexes           []uint64             `json:"won_indexes"` // WonIndexes are the lottery indexes won by the signer
	AuthenticationStatus AuthenticationStatus `json:"-"`           // AuthenticationStatus is derived locally, never serialized
}
