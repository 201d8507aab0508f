package multisigner

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"QuorumCert/internal/entities"
	"QuorumCert/internal/logger"
)

// MultiSigner owns the verification-key sets for the current and next epoch.
// Verification reads the shared state; the registration path mutates it.
// Implementations must be safe for concurrent use.
type MultiSigner interface {
	// VerifySingleSignature verifies a signature against the current
	// epoch's stake distribution. A mismatch is reported as a
	// *VerificationError; any other error is an infrastructure failure.
	VerifySingleSignature(signedMessage string, signature *entities.SingleSignature) error

	// VerifySingleSignatureForNextEpoch verifies against the next epoch's
	// stake distribution, for signers that already rolled over.
	VerifySingleSignatureForNextEpoch(signedMessage string, signature *entities.SingleSignature) error
}

// ErrExistingSigner is returned when a party registers twice for one epoch.
var ErrExistingSigner = errors.New("signer already registered for this epoch")

// VerificationError reports that a signature did not verify against a stake
// distribution. It is a data outcome, distinct from infrastructure failures,
// so callers can fold it into an authentication status instead of failing.
type VerificationError struct {
	PartyID entities.PartyID // PartyID is the signer whose signature was checked
	Epoch   entities.Epoch   // Epoch is the stake distribution used
	Reason  string           // Reason describes the mismatch
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("signature verification failed for party %s at epoch %d: %s", e.PartyID, e.Epoch, e.Reason)
}

// IsVerificationFailure reports whether err is a verification mismatch
// rather than an infrastructure failure.
func IsVerificationFailure(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}

// RegistrationError reports that a signer registration was rejected for what
// the caller submitted: a malformed key or an epoch outside the open window.
// It is a data outcome, distinct from infrastructure failures such as a store
// outage while persisting an accepted registration.
type RegistrationError struct {
	PartyID entities.PartyID // PartyID is the signer that tried to register
	Epoch   entities.Epoch   // Epoch is the epoch the registration targeted
	Reason  string           // Reason describes the rejection
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration rejected for party %s at epoch %d: %s", e.PartyID, e.Epoch, e.Reason)
}

// IsRegistrationFailure reports whether err is a registration rejection
// rather than an infrastructure failure.
func IsRegistrationFailure(err error) bool {
	var re *RegistrationError
	return errors.As(err, &re)
}

// registeredSigner is a signer's parsed registration for one epoch.
type registeredSigner struct {
	publicKey []byte         // publicKey is the decoded BLS public key
	stake     entities.Stake // stake is the signer's voting weight
}

// epochState holds one epoch's registered signers.
type epochState struct {
	epoch   entities.Epoch
	signers map[entities.PartyID]registeredSigner
}

// newEpochState creates an empty state for an epoch.
func newEpochState(epoch entities.Epoch) epochState {
	return epochState{epoch: epoch, signers: make(map[entities.PartyID]registeredSigner)}
}

// Service is the concrete MultiSigner.
// A single RWMutex guards both epoch states: registration takes the write
// lock, verification the read lock, so concurrent registration and
// verification are serialized without callers holding any lock discipline.
type Service struct {
	mu      sync.RWMutex
	current epochState
	next    epochState
}

// New creates a Service with empty stake distributions, starting at the
// given epoch.
func New(epoch entities.Epoch) *Service {
	return &Service{
		current: newEpochState(epoch),
		next:    newEpochState(epoch.Next()),
	}
}

// CurrentEpoch returns the epoch of the current stake distribution.
func (s *Service) CurrentEpoch() entities.Epoch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.epoch
}

// RegisterSigner records a signer's verification key and stake for the
// current or next epoch. Registering the same party twice for one epoch
// returns ErrExistingSigner.
func (s *Service) RegisterSigner(epoch entities.Epoch, signer entities.SignerWithStake) error {
	publicKey, err := hex.DecodeString(signer.VerificationKey)
	if err != nil {
		return &RegistrationError{
			PartyID: signer.PartyID,
			Epoch:   epoch,
			Reason:  "verification key is not valid hex",
		}
	}

	if len(publicKey) != PublicKeySize {
		return &RegistrationError{
			PartyID: signer.PartyID,
			Epoch:   epoch,
			Reason:  fmt.Sprintf("invalid verification key size: got %d, want %d", len(publicKey), PublicKeySize),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.stateFor(epoch)
	if err != nil {
		return &RegistrationError{
			PartyID: signer.PartyID,
			Epoch:   epoch,
			Reason:  err.Error(),
		}
	}

	if _, exists := state.signers[signer.PartyID]; exists {
		return ErrExistingSigner
	}

	state.signers[signer.PartyID] = registeredSigner{publicKey: publicKey, stake: signer.Stake}

	logger.Debug("signer registered",
		"party_id", signer.PartyID,
		"epoch", epoch,
		"stake", signer.Stake,
	)

	return nil
}

// stateFor returns the epoch state matching the given epoch.
// Callers must hold the lock.
func (s *Service) stateFor(epoch entities.Epoch) (*epochState, error) {
	switch epoch {
	case s.current.epoch:
		return &s.current, nil
	case s.next.epoch:
		return &s.next, nil
	default:
		return nil, fmt.Errorf("epoch %d is neither current (%d) nor next (%d)", epoch, s.current.epoch, s.next.epoch)
	}
}

// RotateEpoch advances the epoch: the next stake distribution becomes
// current and a fresh next distribution is opened.
func (s *Service) RotateEpoch() entities.Epoch {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = s.next
	s.next = newEpochState(s.current.epoch.Next())

	logger.Info("stake distribution rotated",
		"epoch", s.current.epoch,
		"signers", len(s.current.signers),
	)

	return s.current.epoch
}

// VerifySingleSignature verifies a signature against the current epoch.
func (s *Service) VerifySingleSignature(signedMessage string, signature *entities.SingleSignature) error {
	s.mu.RLock()
	signer, ok := s.current.signers[signature.PartyID]
	epoch := s.current.epoch
	s.mu.RUnlock()

	return verifySigner(signer, ok, epoch, signedMessage, signature)
}

// VerifySingleSignatureForNextEpoch verifies a signature against the next epoch.
func (s *Service) VerifySingleSignatureForNextEpoch(signedMessage string, signature *entities.SingleSignature) error {
	s.mu.RLock()
	signer, ok := s.next.signers[signature.PartyID]
	epoch := s.next.epoch
	s.mu.RUnlock()

	return verifySigner(signer, ok, epoch, signedMessage, signature)
}

// verifySigner checks one signature against one registered signer.
// The pairing check runs outside the lock since it is CPU-heavy.
func verifySigner(signer registeredSigner, registered bool, epoch entities.Epoch, signedMessage string, signature *entities.SingleSignature) error {
	if !registered {
		return &VerificationError{
			PartyID: signature.PartyID,
			Epoch:   epoch,
			Reason:  "party not registered",
		}
	}

	if !VerifySignature(signature.Signature, []byte(signedMessage), signer.publicKey) {
		return &VerificationError{
			PartyID: signature.PartyID,
			Epoch:   epoch,
			Reason:  "signature does not match",
		}
	}

	return nil
}

// SignersWithStake returns the registered signers for an epoch.
func (s *Service) SignersWithStake(epoch entities.Epoch) ([]entities.SignerWithStake, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.stateFor(epoch)
	if err != nil {
		return nil, err
	}

	signers := make([]entities.SignerWithStake, 0, len(state.signers))

	for party, signer := range state.signers {
		signers = append(signers, entities.SignerWithStake{
			PartyID:         party,
			VerificationKey: hex.EncodeToString(signer.publicKey),
			Stake:           signer.stake,
		})
	}

	return signers, nil
}

// StakeDistribution returns the stake distribution for an epoch.
func (s *Service) StakeDistribution(epoch entities.Epoch) (entities.StakeDistribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.stateFor(epoch)
	if err != nil {
		return nil, err
	}

	distribution := make(entities.StakeDistribution, len(state.signers))

	for party, signer := range state.signers {
		distribution[party] = signer.stake
	}

	return distribution, nil
}

// AggregateVerificationKey returns the hex-encoded aggregate of all
// verification keys registered for an epoch.
func (s *Service) AggregateVerificationKey(epoch entities.Epoch) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.stateFor(epoch)
	if err != nil {
		return "", err
	}

	if len(state.signers) == 0 {
		return "", fmt.Errorf("no signers registered for epoch %d", epoch)
	}

	keys := make([][]byte, 0, len(state.signers))
	for _, signer := range state.signers {
		keys = append(keys, signer.publicKey)
	}

	avk, err := AggregatePublicKeys(keys)
	if err != nil {
		return "", fmt.Errorf("aggregate verification keys for epoch %d:\n%w", epoch, err)
	}

	return hex.EncodeToString(avk), nil
}

// QuorumReached reports whether the given parties carry at least the
// required fraction of the epoch's total stake.
// quorumFraction is expressed in percent, e.g. 67 for two thirds.
func (s *Service) QuorumReached(epoch entities.Epoch, parties []entities.PartyID, quorumFraction int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.stateFor(epoch)
	if err != nil {
		return false, err
	}

	total := new(big.Int)
	for _, signer := range state.signers {
		total.Add(total, new(big.Int).SetUint64(uint64(signer.stake)))
	}

	if total.Sign() == 0 {
		return false, nil
	}

	signed := new(big.Int)
	for _, party := range parties {
		if signer, ok := state.signers[party]; ok {
			signed.Add(signed, new(big.Int).SetUint64(uint64(signer.stake)))
		}
	}

	// Cross-multiplied comparison; stakes are caller-controlled and the
	// products do not fit in uint64.
	signed.Mul(signed, big.NewInt(100))
	total.Mul(total, big.NewInt(int64(quorumFraction)))

	return signed.Cmp(total) >= 0, nil
}
