package main

import (
	"fmt"
	"os"

	"QuorumCert/internal/logger"
)

func main() {
	cfg := parseFlags()

	logger.Init(cfg.LogLevel())

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run(cfg *Config) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	node, err := NewNode(cfg)
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	printStartupInfo(cfg)

	return node.Run()
}

// printStartupInfo displays node configuration at startup.
func printStartupInfo(cfg *Config) {
	logger.Info("starting certification node",
		"http", cfg.HTTPAddress,
		"data", cfg.DataPath,
		"epoch", cfg.StartEpoch,
		"round_interval", cfg.RoundInterval,
		"rounds_per_epoch", cfg.RoundsPerEpoch,
		"quorum_fraction", cfg.QuorumFraction,
	)
}
