package artifact

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"

	"QuorumCert/internal/entities"
)

// Artifact is the externally consumable, typed result of certifying a
// signed entity. Artifacts are immutable after construction and shareable
// across concurrent readers; each concrete type serializes to a stable JSON
// form that round-trips without loss.
type Artifact interface {
	// ArtifactID uniquely identifies the artifact among its kind.
	ArtifactID() string
}

// StakeDistributionSnapshot is the artifact certifying an epoch's stake
// distribution.
type StakeDistributionSnapshot struct {
	Epoch            entities.Epoch             `json:"epoch"`              // Epoch is the certified stake-distribution period
	SignersWithStake []entities.SignerWithStake `json:"signers_with_stake"` // SignersWithStake are the certified signers, sorted by party
	Hash             string                     `json:"hash"`               // Hash identifies the snapshot
}

// NewStakeDistributionSnapshot builds a snapshot from the epoch's signers.
// Signers are sorted by party so the snapshot and its hash are canonical.
func NewStakeDistributionSnapshot(epoch entities.Epoch, signers []entities.SignerWithStake) *StakeDistributionSnapshot {
	sorted := make([]entities.SignerWithStake, len(signers))
	copy(sorted, signers)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PartyID < sorted[j].PartyID
	})

	snapshot := &StakeDistributionSnapshot{
		Epoch:            epoch,
		SignersWithStake: sorted,
	}
	snapshot.Hash = snapshot.computeHash()

	return snapshot
}

// computeHash derives the snapshot hash from the epoch and signer set.
func (s *StakeDistributionSnapshot) computeHash() string {
	h := blake3.New()
	fmt.Fprintf(h, "%d", s.Epoch)

	for _, signer := range s.SignersWithStake {
		fmt.Fprintf(h, "%s:%s:%d", signer.PartyID, signer.VerificationKey, signer.Stake)
	}

	var sum [32]byte
	h.Sum(sum[:0])

	return hex.EncodeToString(sum[:])
}

// ArtifactID implements Artifact.
func (s *StakeDistributionSnapshot) ArtifactID() string {
	return s.Hash
}

// TransactionsSnapshot is the artifact certifying the transaction set up to
// a block number, committed to by a Merkle root.
type TransactionsSnapshot struct {
	MerkleRoot  string               `json:"merkle_root"`  // MerkleRoot commits to the certified transaction set
	BlockNumber entities.BlockNumber `json:"block_number"` // BlockNumber is the beacon of the snapshot
	Hash        string               `json:"hash"`         // Hash identifies the snapshot
}

// NewTransactionsSnapshot builds a snapshot from a committed Merkle root
// and its beacon.
func NewTransactionsSnapshot(merkleRoot string, block entities.BlockNumber) *TransactionsSnapshot {
	snapshot := &TransactionsSnapshot{
		MerkleRoot:  merkleRoot,
		BlockNumber: block,
	}
	snapshot.Hash = snapshot.computeHash()

	return snapshot
}

// computeHash derives the snapshot hash from the root and beacon.
func (s *TransactionsSnapshot) computeHash() string {
	h := blake3.New()
	fmt.Fprintf(h, "%s:%d", s.MerkleRoot, s.BlockNumber)

	var sum [32]byte
	h.Sum(sum[:0])

	return hex.EncodeToString(sum[:])
}

// ArtifactID implements Artifact.
func (s *TransactionsSnapshot) ArtifactID() string {
	return s.Hash
}
