package artifact

import (
	"context"

	"QuorumCert/internal/entities"
	"QuorumCert/internal/prover"
)

// TransactionsBuilder builds transaction-set snapshots.
// It extracts the committed Merkle root from the certificate, then warms the
// prover's proof cache for the beacon so membership proofs can be served.
type TransactionsBuilder struct {
	prover prover.ProverService // prover owns the Merkle-proof caches
}

// NewTransactionsBuilder creates a TransactionsBuilder.
func NewTransactionsBuilder(p prover.ProverService) *TransactionsBuilder {
	return &TransactionsBuilder{prover: p}
}

// Compute builds the transaction-set snapshot for the beacon block number.
// The Merkle root is extracted before any proof-cache work: a certificate
// lacking the root part fails without wasting cache computation.
func (b *TransactionsBuilder) Compute(ctx context.Context, block entities.BlockNumber, certificate *entities.Certificate) (*TransactionsSnapshot, error) {
	entityType := entities.CardanoTransactions(certificate.Epoch, block)

	merkleRoot, ok := certificate.ProtocolMessage.GetPart(entities.PartKeyCardanoTransactionsMerkleRoot)
	if !ok {
		return nil, &MissingMessagePartError{
			Key:        entities.PartKeyCardanoTransactionsMerkleRoot,
			EntityType: entityType,
		}
	}

	if err := b.prover.ComputeCache(ctx, block); err != nil {
		return nil, &CacheComputationError{EntityType: entityType, Err: err}
	}

	return NewTransactionsSnapshot(merkleRoot, block), nil
}
