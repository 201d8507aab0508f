package artifact

import (
	"fmt"

	"QuorumCert/internal/entities"
)

// UnsupportedEntityTypeError is returned by the dispatcher when no builder
// is registered for a signed entity's kind. Forward-compatible entity kinds
// degrade to this recoverable error, never to an abort.
type UnsupportedEntityTypeError struct {
	EntityType entities.SignedEntityType // EntityType is the entity that could not be dispatched
}

// Error implements the error interface.
func (e *UnsupportedEntityTypeError) Error() string {
	return fmt.Sprintf("no artifact builder registered for signed entity %s", e.EntityType)
}

// MissingMessagePartError is returned when a required protocol message part
// is absent from a certificate. Retrying cannot add the missing data, so the
// error names everything needed to diagnose it upstream.
type MissingMessagePartError struct {
	Key        entities.ProtocolMessagePartKey // Key is the missing part
	EntityType entities.SignedEntityType       // EntityType is the entity being computed
}

// Error implements the error interface.
func (e *MissingMessagePartError) Error() string {
	return fmt.Sprintf("protocol message part %q not found in certificate while computing artifact for %s", e.Key, e.EntityType)
}

// CacheComputationError is returned when the prover fails to warm the proof
// cache. Unlike a missing message part, this is retryable once the chain data
// becomes available upstream.
type CacheComputationError struct {
	EntityType entities.SignedEntityType // EntityType is the entity being computed
	Err        error                     // Err is the prover's failure
}

// Error implements the error interface.
func (e *CacheComputationError) Error() string {
	return fmt.Sprintf("proof cache computation failed for %s: %v", e.EntityType, e.Err)
}

// Unwrap returns the prover's failure.
func (e *CacheComputationError) Unwrap() error {
	return e.Err
}
