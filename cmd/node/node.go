package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"QuorumCert/internal/api"
	"QuorumCert/internal/artifact"
	"QuorumCert/internal/authenticator"
	"QuorumCert/internal/entities"
	"QuorumCert/internal/logger"
	"QuorumCert/internal/metrics"
	"QuorumCert/internal/multisigner"
	"QuorumCert/internal/prover"
	"QuorumCert/internal/runtime"
	"QuorumCert/internal/store"
)

// Node is a running certification node.
type Node struct {
	cfg     *Config
	store   *store.Store
	runtime *runtime.Runtime
	api     *api.Server
}

// NewNode creates and wires a node.
func NewNode(cfg *Config) (*Node, error) {
	n := &Node{cfg: cfg}

	if err := n.initStore(); err != nil {
		return nil, err
	}

	n.initPipeline()

	return n, nil
}

// initStore opens the Pebble storage.
func (n *Node) initStore() error {
	if err := os.MkdirAll(n.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := store.Open(n.cfg.DataPath + "/db")
	if err != nil {
		return fmt.Errorf("init storage:\n%w", err)
	}

	n.store = db

	return nil
}

// initPipeline wires the certification pipeline over the open store.
func (n *Node) initPipeline() {
	certificates := store.NewCertificateStore(n.store)
	artifacts := store.NewArtifactStore(n.store)
	transactions := store.NewTransactionStore(n.store)
	signers := store.NewSignerStore(n.store)

	multiSigner := multisigner.New(entities.Epoch(n.cfg.StartEpoch))
	merkleProver := prover.New(transactions)
	metricsService := metrics.New()

	builders := artifact.NewBuilderService(
		artifact.NewStakeDistributionBuilder(multiSigner),
		artifact.NewTransactionsBuilder(merkleProver),
	)

	n.runtime = runtime.New(
		runtime.Config{
			RoundInterval:  n.cfg.RoundInterval,
			RoundsPerEpoch: n.cfg.RoundsPerEpoch,
			QuorumFraction: n.cfg.QuorumFraction,
		},
		runtime.Dependencies{
			MultiSigner:   multiSigner,
			Authenticator: authenticator.New(multiSigner),
			Builders:      builders,
			Prover:        merkleProver,
			Certificates:  certificates,
			Artifacts:     artifacts,
			Transactions:  transactions,
			Signers:       signers,
			Metrics:       metricsService,
		},
	)

	n.api = api.New(
		n.cfg.HTTPAddress,
		n.runtime,
		n.runtime,
		n.runtime,
		certificates,
		artifacts,
		merkleProver,
		n.runtime,
		metricsService,
	)
}

// Run starts the node and blocks until a termination signal arrives.
func (n *Node) Run() error {
	n.runtime.Start()

	if err := n.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return n.Close()
}

// Close shuts down all node components gracefully.
func (n *Node) Close() error {
	if n.api != nil {
		n.api.Stop()
	}

	if n.runtime != nil {
		n.runtime.Stop()
	}

	if n.store != nil {
		return n.store.Close()
	}

	return nil
}
