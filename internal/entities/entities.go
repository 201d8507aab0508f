package entities

// Epoch identifies a stake-distribution period.
// Epochs increase monotonically; "current" and "next" are adjacent by
// convention of the surrounding runtime.
type Epoch uint64

// Next returns the epoch immediately following this one.
func (e Epoch) Next() Epoch {
	return e + 1
}

// BlockNumber identifies a chain position used as the beacon for
// transaction-set artifacts.
type BlockNumber uint64

// PartyID identifies a registered signer.
type PartyID string

// Stake is the voting weight of a signer for a given epoch.
type Stake uint64

// StakeDistribution maps signers to their voting weight.
type StakeDistribution map[PartyID]Stake

// TotalStake returns the sum of all stakes in the distribution.
func (sd StakeDistribution) TotalStake() Stake {
	var total Stake
	for _, s := range sd {
		total += s
	}

	return total
}

// Signer holds a signer's identity and verification key as registered
// through the API.
type Signer struct {
	PartyID         PartyID `json:"party_id"`         // PartyID is the signer's unique identifier
	VerificationKey string  `json:"verification_key"` // VerificationKey is the hex-encoded BLS public key
}

// SignerWithStake is a registered signer together with its stake for an epoch.
type SignerWithStake struct {
	PartyID         PartyID `json:"party_id"`         // PartyID is the signer's unique identifier
	VerificationKey string  `json:"verification_key"` // VerificationKey is the hex-encoded BLS public key
	Stake           Stake   `json:"stake"`            // Stake is the signer's voting weight
}
