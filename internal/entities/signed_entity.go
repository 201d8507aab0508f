package entities

import "fmt"

// SignedEntityKind tags the variant of a SignedEntityType.
// The set is open: kinds unknown to this build may arrive from newer peers
// and must be carried through without loss.
type SignedEntityKind uint8

const (
	// KindMithrilStakeDistribution certifies the stake distribution of an epoch.
	KindMithrilStakeDistribution SignedEntityKind = 1

	// KindCardanoTransactions certifies the transaction set up to a block number.
	KindCardanoTransactions SignedEntityKind = 2
)

// String returns the kind's wire name.
func (k SignedEntityKind) String() string {
	switch k {
	case KindMithrilStakeDistribution:
		return "MithrilStakeDistribution"
	case KindCardanoTransactions:
		return "CardanoTransactions"
	default:
		return fmt.Sprintf("UnknownSignedEntityKind(%d)", uint8(k))
	}
}

// SignedEntityType identifies what is being certified.
// Each kind carries its own beacon: the epoch for stake distributions,
// the block number for transaction sets (the epoch is still recorded so the
// entity is self-describing).
type SignedEntityType struct {
	Kind        SignedEntityKind `json:"kind"`                   // Kind is the variant tag used for dispatch
	Epoch       Epoch            `json:"epoch"`                  // Epoch is the epoch the entity belongs to
	BlockNumber BlockNumber      `json:"block_number,omitempty"` // BlockNumber is the beacon for transaction sets
}

// MithrilStakeDistribution builds the stake-distribution entity for an epoch.
func MithrilStakeDistribution(epoch Epoch) SignedEntityType {
	return SignedEntityType{Kind: KindMithrilStakeDistribution, Epoch: epoch}
}

// CardanoTransactions builds the transaction-set entity for an epoch and block.
func CardanoTransactions(epoch Epoch, block BlockNumber) SignedEntityType {
	return SignedEntityType{Kind: KindCardanoTransactions, Epoch: epoch, BlockNumber: block}
}

// String renders the entity with its beacon for error reporting.
func (t SignedEntityType) String() string {
	switch t.Kind {
	case KindMithrilStakeDistribution:
		return fmt.Sprintf("MithrilStakeDistribution(epoch=%d)", t.Epoch)
	case KindCardanoTransactions:
		return fmt.Sprintf("CardanoTransactions(epoch=%d, block=%d)", t.Epoch, t.BlockNumber)
	default:
		return fmt.Sprintf("%s(epoch=%d, block=%d)", t.Kind, t.Epoch, t.BlockNumber)
	}
}
