package artifact

import (
	"context"

	"QuorumCert/internal/entities"
)

// Builder turns a beacon and a certificate into a typed artifact.
// One implementation exists per signed entity kind; the beacon type is the
// kind's own (epoch for stake distributions, block number for transaction
// sets). Implementations hold no per-call mutable state and are safe for
// concurrent dispatches.
type Builder[B any, A Artifact] interface {
	// Compute produces the artifact for the given beacon from a certified
	// (quorum-reached) certificate, which it reads but never mutates.
	Compute(ctx context.Context, beacon B, certificate *entities.Certificate) (A, error)
}
