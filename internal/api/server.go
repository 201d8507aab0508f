package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"QuorumCert/internal/entities"
	"QuorumCert/internal/logger"
	"QuorumCert/internal/metrics"
	"QuorumCert/internal/multisigner"
	"QuorumCert/internal/prover"
	"QuorumCert/internal/store"
)

const (
	// maxBodySize is the maximum request body size in bytes.
	maxBodySize = 1 << 20 // 1 MB
)

// SignerRegistry accepts signer registrations for the open epochs.
type SignerRegistry interface {
	CurrentEpoch() entities.Epoch
	RegisterSigner(epoch entities.Epoch, signer entities.SignerWithStake) error
}

// SignatureProcessor authenticates inbound single signatures and collects
// the authenticated ones for the open certification round. The returned
// status is the authentication outcome; an error means the node could not
// decide at all.
type SignatureProcessor interface {
	ProcessSignature(ctx context.Context, signature *entities.SingleSignature) (entities.AuthenticationStatus, error)
}

// TransactionImporter accepts observed chain transactions for later
// transaction-set rounds.
type TransactionImporter interface {
	ImportTransactions(txs []entities.Transaction) error
}

// CertificateReader reads persisted certificates.
type CertificateReader interface {
	Get(hash string) (*entities.Certificate, error)
	Latest() (*entities.Certificate, error)
	List() ([]*entities.Certificate, error)
}

// ArtifactReader reads persisted artifact records.
type ArtifactReader interface {
	ListByKind(kind entities.SignedEntityKind) ([]*store.ArtifactRecord, error)
}

// MembershipProver serves transaction membership proofs from the certified
// transaction-set caches.
type MembershipProver interface {
	ComputeProof(ctx context.Context, upTo entities.BlockNumber, hashes []string) ([]prover.MembershipProof, error)
}

// StatusProvider exposes certification state for monitoring and for
// signers that need the open round's message.
type StatusProvider interface {
	CurrentEpoch() entities.Epoch
	HighestCertifiedBlock() entities.BlockNumber
	RegisteredSignerCount() int
	OpenRoundMessage() string
}

// Server is the HTTP API server.
type Server struct {
	addr         string              // addr is the HTTP listen address
	registry     SignerRegistry      // registry accepts signer registrations
	processor    SignatureProcessor  // processor authenticates single signatures
	importer     TransactionImporter // importer accepts observed chain transactions
	certificates CertificateReader   // certificates reads persisted certificates
	artifacts    ArtifactReader      // artifacts reads persisted artifact records
	prover       MembershipProver    // prover serves transaction membership proofs
	status       StatusProvider      // status provides certification state for monitoring
	metrics      *metrics.Service    // metrics counts registrations and serves /metrics
	server       *http.Server        // server is the underlying HTTP server
}

// New creates a new HTTP API server.
func New(
	addr string,
	registry SignerRegistry,
	processor SignatureProcessor,
	importer TransactionImporter,
	certificates CertificateReader,
	artifacts ArtifactReader,
	membershipProver MembershipProver,
	status StatusProvider,
	metricsService *metrics.Service,
) *Server {
	return &Server{
		addr:         addr,
		registry:     registry,
		processor:    processor,
		importer:     importer,
		certificates: certificates,
		artifacts:    artifacts,
		prover:       membershipProver,
		status:       status,
		metrics:      metricsService,
	}
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Handler builds the route table. Exposed so tests can drive the routes
// without a listening socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register-signer", s.handleRegisterSigner)
	mux.HandleFunc("POST /register-signatures", s.handleRegisterSignatures)
	mux.HandleFunc("POST /transactions", s.handleImportTransactions)
	mux.HandleFunc("GET /certificates", s.handleListCertificates)
	mux.HandleFunc("GET /certificate/{hash}", s.handleGetCertificate)
	mux.HandleFunc("GET /artifact/mithril-stake-distributions", s.handleListStakeDistributions)
	mux.HandleFunc("GET /artifact/cardano-transactions", s.handleListTransactionSnapshots)
	mux.HandleFunc("GET /proof/cardano-transaction", s.handleTransactionProof)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return mux
}

// handleRegisterSigner handles POST /register-signer requests.
// A zero epoch in the body registers for the current epoch. Rejections of
// the caller's input map to 400, a duplicate registration to 409; anything
// else failing inside the node is a 500.
func (s *Server) handleRegisterSigner(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.SignerRegistrationReceived()
	}

	var req registerSignerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	epoch := req.Epoch
	if epoch == 0 {
		epoch = s.registry.CurrentEpoch()
	}

	err := s.registry.RegisterSigner(epoch, entities.SignerWithStake{
		PartyID:         req.PartyID,
		VerificationKey: req.VerificationKey,
		Stake:           req.Stake,
	})

	switch {
	case errors.Is(err, multisigner.ErrExistingSigner):
		writeError(w, http.StatusConflict, err.Error())
		return
	case multisigner.IsRegistrationFailure(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logger.Error("signer registration failed", "party_id", req.PartyID, "error", err)
		writeError(w, http.StatusInternalServerError, "signer registration failed")
		return
	}

	if s.metrics != nil {
		s.metrics.SignerRegistrationAccepted()
	}

	logger.Debug("signer registered via api", "party_id", req.PartyID, "epoch", epoch)

	writeJSON(w, http.StatusCreated, map[string]any{
		"party_id": req.PartyID,
		"epoch":    epoch,
	})
}

// handleRegisterSignatures handles POST /register-signatures requests.
// An unauthenticated signature is rejected with 401; only an infrastructure
// failure inside the node yields 500.
func (s *Server) handleRegisterSignatures(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.SignatureReceived()
	}

	var req registerSignatureRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	signature, err := req.toSingleSignature()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := s.processor.ProcessSignature(r.Context(), signature)
	if err != nil {
		logger.Error("signature processing failed", "party_id", signature.PartyID, "error", err)
		writeError(w, http.StatusInternalServerError, "signature processing failed")
		return
	}

	if status != entities.Authenticated {
		writeError(w, http.StatusUnauthorized, "signature not authenticated")
		return
	}

	if s.metrics != nil {
		s.metrics.SignatureAuthenticated()
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"party_id": string(signature.PartyID),
	})
}

// handleImportTransactions handles POST /transactions requests.
func (s *Server) handleImportTransactions(w http.ResponseWriter, r *http.Request) {
	var txs []entities.Transaction
	if err := readJSON(r, &txs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(txs) == 0 {
		writeError(w, http.StatusBadRequest, "empty transaction batch")
		return
	}

	for _, tx := range txs {
		if tx.Hash == "" || tx.BlockNumber == 0 {
			writeError(w, http.StatusBadRequest, "transaction without hash or block number")
			return
		}
	}

	if err := s.importer.ImportTransactions(txs); err != nil {
		logger.Error("transaction import failed", "count", len(txs), "error", err)
		writeError(w, http.StatusInternalServerError, "transaction import failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{
		"imported": len(txs),
	})
}

// handleListCertificates handles GET /certificates requests.
func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := s.certificates.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list certificates failed")
		return
	}

	if certs == nil {
		certs = []*entities.Certificate{}
	}

	writeJSON(w, http.StatusOK, certs)
}

// handleGetCertificate handles GET /certificate/{hash} requests.
func (s *Server) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")

	cert, err := s.certificates.Get(hash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get certificate failed")
		return
	}

	if cert == nil {
		writeError(w, http.StatusNotFound, "certificate not found")
		return
	}

	writeJSON(w, http.StatusOK, cert)
}

// handleListStakeDistributions handles GET /artifact/mithril-stake-distributions.
func (s *Server) handleListStakeDistributions(w http.ResponseWriter, r *http.Request) {
	s.listArtifacts(w, entities.KindMithrilStakeDistribution)
}

// handleListTransactionSnapshots handles GET /artifact/cardano-transactions.
func (s *Server) handleListTransactionSnapshots(w http.ResponseWriter, r *http.Request) {
	s.listArtifacts(w, entities.KindCardanoTransactions)
}

// listArtifacts serves all artifact records of one kind.
func (s *Server) listArtifacts(w http.ResponseWriter, kind entities.SignedEntityKind) {
	records, err := s.artifacts.ListByKind(kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list artifacts failed")
		return
	}

	if records == nil {
		records = []*store.ArtifactRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// handleTransactionProof handles GET /proof/cardano-transaction requests.
// Proofs are served against the highest certified block; hashes outside the
// certified set are silently absent from the response.
func (s *Server) handleTransactionProof(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("transaction_hashes")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing transaction_hashes parameter")
		return
	}

	hashes := strings.Split(raw, ",")

	block := s.status.HighestCertifiedBlock()
	if block == 0 {
		writeError(w, http.StatusNotFound, "no certified transaction set yet")
		return
	}

	proofs, err := s.prover.ComputeProof(r.Context(), block, hashes)
	if err != nil {
		logger.Error("membership proof computation failed", "block", block, "error", err)
		writeError(w, http.StatusInternalServerError, "proof computation failed")
		return
	}

	if proofs == nil {
		proofs = []prover.MembershipProof{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"certified_up_to": block,
		"proofs":          proofs,
	})
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStatus handles GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusServiceUnavailable, "status not available")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"epoch":                 s.status.CurrentEpoch(),
		"highestCertifiedBlock": s.status.HighestCertifiedBlock(),
		"registeredSigners":     s.status.RegisteredSignerCount(),
		"openRoundMessage":      s.status.OpenRoundMessage(),
	})
}

// readJSON decodes a JSON request body with a size limit.
func readJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.New("failed to read body")
	}

	if len(body) == 0 {
		return errors.New("empty body")
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return errors.New("invalid json body")
	}

	return nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
