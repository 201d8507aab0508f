package artifact

import (
	"context"
	"fmt"

	"QuorumCert/internal/entities"
)

// StakeDistributionRetriever provides the registered signers for an epoch.
type StakeDistributionRetriever interface {
	SignersWithStake(epoch entities.Epoch) ([]entities.SignerWithStake, error)
}

// StakeDistributionBuilder builds stake-distribution snapshots.
// It is a thin passthrough: the signer and stake data are already in hand,
// so the builder only shapes them into the canonical snapshot.
type StakeDistributionBuilder struct {
	retriever StakeDistributionRetriever // retriever provides the epoch's signers
}

// NewStakeDistributionBuilder creates a StakeDistributionBuilder.
func NewStakeDistributionBuilder(retriever StakeDistributionRetriever) *StakeDistributionBuilder {
	return &StakeDistributionBuilder{retriever: retriever}
}

// Compute builds the stake-distribution snapshot for the beacon epoch.
func (b *StakeDistributionBuilder) Compute(ctx context.Context, epoch entities.Epoch, certificate *entities.Certificate) (*StakeDistributionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	signers, err := b.retriever.SignersWithStake(epoch)
	if err != nil {
		return nil, fmt.Errorf("retrieve signers while computing artifact for %s:\n%w", entities.MithrilStakeDistribution(epoch), err)
	}

	return NewStakeDistributionSnapshot(epoch, signers), nil
}
