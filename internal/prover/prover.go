package prover

import (
	"context"
	"fmt"
	"sync"
	"time"

	"QuorumCert/internal/entities"
	"QuorumCert/internal/logger"
	"QuorumCert/internal/merkle"
)

// TransactionRetriever provides the transactions covered by a beacon.
type TransactionRetriever interface {
	// GetUpTo returns all transactions with block number <= upTo.
	GetUpTo(upTo entities.BlockNumber) ([]entities.Transaction, error)
}

// ProverService owns the Merkle-proof caches keyed by block range.
// ComputeCache is invoked by the transaction artifact builder once a
// Merkle root has been extracted from a certificate; ComputeProof serves
// membership proofs from the warmed cache.
type ProverService interface {
	// ComputeCache builds and caches the Merkle tree covering all
	// transactions up to the given block number.
	ComputeCache(ctx context.Context, upTo entities.BlockNumber) error
}

// MembershipProof is a transaction's proof of inclusion in a certified set.
type MembershipProof struct {
	TransactionHash string               `json:"transaction_hash"` // TransactionHash is the proven transaction
	BlockNumber     entities.BlockNumber `json:"block_number"`     // BlockNumber is the beacon of the proving tree
	MerkleRoot      string               `json:"merkle_root"`      // MerkleRoot is the root the proof verifies against
	Proof           *merkle.Proof        `json:"proof"`            // Proof is the Merkle membership proof
}

// MerkleProver is the concrete ProverService.
// Trees are immutable once built, so cached trees are shared read-only
// across concurrent provers.
type MerkleProver struct {
	retriever TransactionRetriever

	mu     sync.RWMutex
	caches map[entities.BlockNumber]*merkle.Tree
}

// New creates a MerkleProver over the given transaction retriever.
func New(retriever TransactionRetriever) *MerkleProver {
	return &MerkleProver{
		retriever: retriever,
		caches:    make(map[entities.BlockNumber]*merkle.Tree),
	}
}

// ComputeCache builds the Merkle tree for all transactions up to the given
// block number and caches it. Recomputing an already-cached range is a no-op.
func (p *MerkleProver) ComputeCache(ctx context.Context, upTo entities.BlockNumber) error {
	p.mu.RLock()
	_, cached := p.caches[upTo]
	p.mu.RUnlock()

	if cached {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()

	txs, err := p.retriever.GetUpTo(upTo)
	if err != nil {
		return fmt.Errorf("retrieve transactions up to block %d:\n%w", upTo, err)
	}

	if len(txs) == 0 {
		return fmt.Errorf("no transactions available up to block %d", upTo)
	}

	leaves := make([][]byte, len(txs))
	for i, tx := range txs {
		leaves[i] = []byte(tx.Hash)
	}

	tree, err := merkle.NewTree(leaves)
	if err != nil {
		return fmt.Errorf("build merkle tree up to block %d:\n%w", upTo, err)
	}

	p.mu.Lock()
	p.caches[upTo] = tree
	p.mu.Unlock()

	logger.Debug("merkle proof cache computed",
		"block", upTo,
		"transactions", len(txs),
		logger.Timed(start),
	)

	return nil
}

// MerkleRoot returns the hex-encoded root of the cached tree for a beacon.
// The cache is computed on demand if absent.
func (p *MerkleProver) MerkleRoot(ctx context.Context, upTo entities.BlockNumber) (string, error) {
	tree, err := p.tree(ctx, upTo)
	if err != nil {
		return "", err
	}

	return tree.RootHex(), nil
}

// ComputeProof returns membership proofs for the given transaction hashes
// against the tree covering blocks up to upTo. Hashes not in the certified
// set are skipped.
func (p *MerkleProver) ComputeProof(ctx context.Context, upTo entities.BlockNumber, hashes []string) ([]MembershipProof, error) {
	tree, err := p.tree(ctx, upTo)
	if err != nil {
		return nil, err
	}

	var proofs []MembershipProof

	for _, hash := range hashes {
		proof, err := tree.Prove([]byte(hash))
		if err != nil {
			continue // not part of the certified set
		}

		proofs = append(proofs, MembershipProof{
			TransactionHash: hash,
			BlockNumber:     upTo,
			MerkleRoot:      tree.RootHex(),
			Proof:           proof,
		})
	}

	return proofs, nil
}

// tree returns the cached tree for a beacon, computing it if needed.
func (p *MerkleProver) tree(ctx context.Context, upTo entities.BlockNumber) (*merkle.Tree, error) {
	p.mu.RLock()
	tree, ok := p.caches[upTo]
	p.mu.RUnlock()

	if ok {
		return tree, nil
	}

	if err := p.ComputeCache(ctx, upTo); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.caches[upTo], nil
}
