package artifact

import (
	"context"
	"time"

	"QuorumCert/internal/entities"
	"QuorumCert/internal/logger"
)

// BuilderService routes a certified signed entity to the one builder
// registered for its kind. Exactly one builder exists per known kind; an
// unknown kind yields an UnsupportedEntityTypeError rather than a fallback.
// The service itself holds no mutable state and is safe for concurrent use.
type BuilderService struct {
	stakeDistributionBuilder Builder[entities.Epoch, *StakeDistributionSnapshot]  // builder for stake-distribution entities
	transactionsBuilder      Builder[entities.BlockNumber, *TransactionsSnapshot] // builder for transaction-set entities
}

// NewBuilderService creates a BuilderService with one builder per kind.
func NewBuilderService(
	stakeDistributionBuilder Builder[entities.Epoch, *StakeDistributionSnapshot],
	transactionsBuilder Builder[entities.BlockNumber, *TransactionsSnapshot],
) *BuilderService {
	return &BuilderService{
		stakeDistributionBuilder: stakeDistributionBuilder,
		transactionsBuilder:      transactionsBuilder,
	}
}

// ComputeArtifact dispatches on the entity's kind, irrespective of its
// beacon payload, and returns the builder's artifact as a read-only handle.
// Stake-distribution entities pass the epoch as beacon; transaction-set
// entities pass the block number (the epoch travels in the certificate).
func (s *BuilderService) ComputeArtifact(ctx context.Context, entityType entities.SignedEntityType, certificate *entities.Certificate) (Artifact, error) {
	start := time.Now()

	var computed Artifact

	switch entityType.Kind {
	case entities.KindMithrilStakeDistribution:
		snapshot, err := s.stakeDistributionBuilder.Compute(ctx, entityType.Epoch, certificate)
		if err != nil {
			return nil, err
		}

		computed = snapshot

	case entities.KindCardanoTransactions:
		snapshot, err := s.transactionsBuilder.Compute(ctx, entityType.BlockNumber, certificate)
		if err != nil {
			return nil, err
		}

		computed = snapshot

	default:
		return nil, &UnsupportedEntityTypeError{EntityType: entityType}
	}

	logger.Debug("artifact computed",
		"entity_type", entityType.String(),
		"artifact_id", computed.ArtifactID(),
		logger.Timed(start),
	)

	return computed, nil
}
