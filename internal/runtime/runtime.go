package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"QuorumCert/internal/artifact"
	"QuorumCert/internal/authenticator"
	"QuorumCert/internal/entities"
	"QuorumCert/internal/logger"
	"QuorumCert/internal/metrics"
	"QuorumCert/internal/multisigner"
	"QuorumCert/internal/prover"
	"QuorumCert/internal/store"
)

// Config holds the certification loop parameters.
type Config struct {
	RoundInterval  time.Duration // RoundInterval paces the certification loop
	RoundsPerEpoch int           // RoundsPerEpoch is the number of certification rounds before the epoch rotates
	QuorumFraction int           // QuorumFraction is the stake percentage required to certify, e.g. 67
}

// Dependencies are the collaborators the runtime drives.
type Dependencies struct {
	MultiSigner   *multisigner.Service
	Authenticator *authenticator.SingleSignatureAuthenticator
	Builders      *artifact.BuilderService
	Prover        *prover.MerkleProver
	Certificates  *store.CertificateStore
	Artifacts     *store.ArtifactStore
	Transactions  *store.TransactionStore
	Signers       *store.SignerStore
	Metrics       *metrics.Service
}

// Runtime runs the certification loop: it opens signing rounds, collects
// authenticated single signatures, and once a stake quorum is reached turns
// the round into a certificate and its artifact.
//
// The first round of each epoch certifies the stake distribution; the
// remaining rounds certify the transaction set whenever new blocks arrived
// since the last certified one.
type Runtime struct {
	cfg  Config
	deps Dependencies

	mu               sync.Mutex
	round            *signingRound        // round is the open round, nil when idle
	roundsInEpoch    int                  // roundsInEpoch counts certified rounds since the last rotation
	highestCertified entities.BlockNumber // highestCertified is the highest certified block number

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Runtime.
func New(cfg Config, deps Dependencies) *Runtime {
	return &Runtime{
		cfg:  cfg,
		deps: deps,
		stop: make(chan struct{}),
	}
}

// Start launches the certification loop in a goroutine.
func (r *Runtime) Start() {
	r.wg.Add(1)

	go r.loop()

	logger.Info("certification runtime started",
		"round_interval", r.cfg.RoundInterval,
		"rounds_per_epoch", r.cfg.RoundsPerEpoch,
		"quorum_fraction", r.cfg.QuorumFraction,
	)
}

// Stop terminates the certification loop and waits for it to finish.
func (r *Runtime) Stop() {
	close(r.stop)
	r.wg.Wait()
}

// loop ticks the certification pipeline until stopped.
func (r *Runtime) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.RoundInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if err := r.Tick(context.Background()); err != nil {
				logger.Error("certification tick failed", "error", err)
			}
		}
	}
}

// Tick advances the pipeline one step: it opens a round when none is open,
// otherwise tries to certify the open one. Exposed so tests and tooling can
// drive the pipeline without the ticker.
func (r *Runtime) Tick(ctx context.Context) error {
	r.mu.Lock()
	open := r.round != nil
	r.mu.Unlock()

	if !open {
		return r.openRound(ctx)
	}

	return r.tryCertify(ctx)
}

// openRound opens the next signing round if there is anything to certify.
// The first round of an epoch targets the stake distribution; later rounds
// target the transaction set when new blocks arrived.
func (r *Runtime) openRound(ctx context.Context) error {
	epoch := r.deps.MultiSigner.CurrentEpoch()

	signers, err := r.deps.MultiSigner.SignersWithStake(epoch)
	if err != nil {
		return fmt.Errorf("read stake distribution for epoch %d:\n%w", epoch, err)
	}

	if len(signers) == 0 {
		return nil // no signers yet, nothing can be certified
	}

	r.mu.Lock()
	stakeRoundDone := r.roundsInEpoch > 0
	highestCertified := r.highestCertified
	r.mu.Unlock()

	var (
		entityType entities.SignedEntityType
		message    *entities.ProtocolMessage
	)

	if !stakeRoundDone {
		entityType = entities.MithrilStakeDistribution(epoch)
		message = r.stakeDistributionMessage(epoch)
	} else {
		highest, err := r.deps.Transactions.HighestBlock()
		if err != nil {
			return fmt.Errorf("read highest transaction block:\n%w", err)
		}

		if highest <= highestCertified {
			return nil // no new blocks since the last certified set
		}

		entityType = entities.CardanoTransactions(epoch, highest)

		message, err = r.transactionsMessage(ctx, epoch, highest)
		if err != nil {
			return err
		}
	}

	round := newSigningRound(entityType, message)

	r.mu.Lock()
	r.round = round
	r.mu.Unlock()

	logger.Info("signing round opened",
		"entity_type", entityType.String(),
		"signed_message", round.signedMessage,
	)

	return nil
}

// stakeDistributionMessage builds the protocol message for a
// stake-distribution round. The next epoch's aggregate verification key is
// included when that distribution already has signers; its absence is valid.
func (r *Runtime) stakeDistributionMessage(epoch entities.Epoch) *entities.ProtocolMessage {
	message := entities.NewProtocolMessage()

	if avk, err := r.deps.MultiSigner.AggregateVerificationKey(epoch.Next()); err == nil {
		message.SetPart(entities.PartKeyNextAggregateVerificationKey, avk)
	}

	return message
}

// transactionsMessage builds the protocol message for a transaction-set
// round: the Merkle root over all transactions up to the block, the block
// number, and the next epoch's aggregate verification key when available.
func (r *Runtime) transactionsMessage(ctx context.Context, epoch entities.Epoch, block entities.BlockNumber) (*entities.ProtocolMessage, error) {
	root, err := r.deps.Prover.MerkleRoot(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("compute merkle root up to block %d:\n%w", block, err)
	}

	message := entities.NewProtocolMessage()
	message.SetPart(entities.PartKeyCardanoTransactionsMerkleRoot, root)
	message.SetPart(entities.PartKeyLatestBlockNumber, strconv.FormatUint(uint64(block), 10))

	if avk, err := r.deps.MultiSigner.AggregateVerificationKey(epoch.Next()); err == nil {
		message.SetPart(entities.PartKeyNextAggregateVerificationKey, avk)
	}

	return message, nil
}

// tryCertify closes the open round if the collected signatures carry a
// stake quorum: it aggregates them into a certificate, persists it, and
// computes and persists the entity's artifact.
func (r *Runtime) tryCertify(ctx context.Context) error {
	r.mu.Lock()
	round := r.round
	r.mu.Unlock()

	if round == nil {
		return nil
	}

	if r.deps.Metrics != nil {
		r.deps.Metrics.CertificationRoundRun()
	}

	epoch := round.entityType.Epoch

	r.mu.Lock()
	parties := round.parties()
	raw := round.rawSignatures()
	r.mu.Unlock()

	reached, err := r.deps.MultiSigner.QuorumReached(epoch, parties, r.cfg.QuorumFraction)
	if err != nil {
		return fmt.Errorf("check quorum for %s:\n%w", round.entityType, err)
	}

	if !reached {
		logger.Debug("quorum not reached",
			"entity_type", round.entityType.String(),
			"signatures", len(parties),
		)

		return nil
	}

	cert, err := r.buildCertificate(round, raw)
	if err != nil {
		return err
	}

	if err := r.deps.Certificates.Save(cert); err != nil {
		return fmt.Errorf("persist certificate %s:\n%w", cert.Hash, err)
	}

	if err := r.produceArtifact(ctx, round.entityType, cert); err != nil {
		return err
	}

	r.closeRound(round.entityType)

	if r.deps.Metrics != nil {
		r.deps.Metrics.CertificationRoundSucceeded()
	}

	logger.Info("certificate produced",
		"hash", cert.Hash,
		"entity_type", round.entityType.String(),
		"signatures", len(parties),
	)

	return nil
}

// buildCertificate aggregates the round's signatures into a certificate
// chained to the latest persisted one.
func (r *Runtime) buildCertificate(round *signingRound, raw [][]byte) (*entities.Certificate, error) {
	epoch := round.entityType.Epoch

	multiSig, err := multisigner.AggregateSignatures(raw)
	if err != nil {
		return nil, fmt.Errorf("aggregate signatures for %s:\n%w", round.entityType, err)
	}

	avk, err := r.deps.MultiSigner.AggregateVerificationKey(epoch)
	if err != nil {
		return nil, fmt.Errorf("aggregate verification key for epoch %d:\n%w", epoch, err)
	}

	var previousHash string

	latest, err := r.deps.Certificates.Latest()
	if err != nil {
		return nil, fmt.Errorf("read latest certificate:\n%w", err)
	}

	if latest != nil {
		previousHash = latest.Hash
	}

	return entities.NewCertificate(previousHash, round.entityType, round.message, avk, multiSig), nil
}

// produceArtifact computes and persists the artifact for a fresh certificate.
func (r *Runtime) produceArtifact(ctx context.Context, entityType entities.SignedEntityType, cert *entities.Certificate) error {
	if r.deps.Metrics != nil {
		r.deps.Metrics.ArtifactComputationStarted(entityType.Kind)
	}

	computed, err := r.deps.Builders.ComputeArtifact(ctx, entityType, cert)
	if err != nil {
		return fmt.Errorf("compute artifact for %s:\n%w", entityType, err)
	}

	data, err := json.Marshal(computed)
	if err != nil {
		return fmt.Errorf("marshal artifact %s:\n%w", computed.ArtifactID(), err)
	}

	record := &store.ArtifactRecord{
		SignedEntityType: entityType,
		CertificateHash:  cert.Hash,
		Artifact:         data,
		CreatedAt:        time.Now().UTC(),
	}

	if err := r.deps.Artifacts.Save(record); err != nil {
		return fmt.Errorf("persist artifact %s:\n%w", computed.ArtifactID(), err)
	}

	if r.deps.Metrics != nil {
		r.deps.Metrics.ArtifactComputationSucceeded(entityType.Kind)
	}

	return nil
}

// closeRound clears the round and rotates the epoch when its round budget
// is spent.
func (r *Runtime) closeRound(entityType entities.SignedEntityType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.round = nil
	r.roundsInEpoch++

	if entityType.Kind == entities.KindCardanoTransactions && entityType.BlockNumber > r.highestCertified {
		r.highestCertified = entityType.BlockNumber
	}

	if r.cfg.RoundsPerEpoch > 0 && r.roundsInEpoch >= r.cfg.RoundsPerEpoch {
		epoch := r.deps.MultiSigner.RotateEpoch()
		r.roundsInEpoch = 0

		if r.deps.Metrics != nil {
			r.deps.Metrics.EpochRotated()
		}

		logger.Info("epoch rotated", "epoch", epoch)
	}
}

// ProcessSignature authenticates an inbound single signature against the
// open round's signed message and collects it when authenticated. The
// status is recomputed on every call; with no open round the signature
// stays unauthenticated.
func (r *Runtime) ProcessSignature(ctx context.Context, signature *entities.SingleSignature) (entities.AuthenticationStatus, error) {
	r.mu.Lock()
	round := r.round
	r.mu.Unlock()

	if round == nil {
		signature.AuthenticationStatus = entities.Unauthenticated

		logger.Debug("signature received with no open round", "party_id", signature.PartyID)

		return entities.Unauthenticated, nil
	}

	if err := r.deps.Authenticator.Authenticate(ctx, signature, round.signedMessage); err != nil {
		return entities.Unauthenticated, err
	}

	if signature.AuthenticationStatus == entities.Authenticated {
		r.mu.Lock()
		if r.round == round {
			round.add(signature)
		}
		r.mu.Unlock()
	}

	return signature.AuthenticationStatus, nil
}

// RegisterSigner records a signer for an epoch in the stake distribution
// and persists the accepted registration.
func (r *Runtime) RegisterSigner(epoch entities.Epoch, signer entities.SignerWithStake) error {
	if err := r.deps.MultiSigner.RegisterSigner(epoch, signer); err != nil {
		return err
	}

	if err := r.deps.Signers.Save(epoch, signer); err != nil {
		return fmt.Errorf("persist signer %s for epoch %d:\n%w", signer.PartyID, epoch, err)
	}

	return nil
}

// ImportTransactions persists a batch of observed chain transactions so
// later transaction-set rounds cover them.
func (r *Runtime) ImportTransactions(txs []entities.Transaction) error {
	return r.deps.Transactions.Save(txs)
}

// CurrentEpoch returns the epoch of the current stake distribution.
func (r *Runtime) CurrentEpoch() entities.Epoch {
	return r.deps.MultiSigner.CurrentEpoch()
}

// HighestCertifiedBlock returns the highest block covered by a certificate.
func (r *Runtime) HighestCertifiedBlock() entities.BlockNumber {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.highestCertified
}

// OpenRoundMessage returns the signed message of the open round, or the
// empty string when no round is open.
func (r *Runtime) OpenRoundMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.round == nil {
		return ""
	}

	return r.round.signedMessage
}

// RegisteredSignerCount returns the number of signers in the current
// stake distribution.
func (r *Runtime) RegisteredSignerCount() int {
	signers, err := r.deps.MultiSigner.SignersWithStake(r.deps.MultiSigner.CurrentEpoch())
	if err != nil {
		return 0
	}

	return len(signers)
}
