package main

import (
	"flag"
	"fmt"
	"log/slog"
	"time"
)

// Config holds the node configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string

	// StartEpoch is the epoch the stake distribution opens at.
	StartEpoch uint64

	// RoundInterval is the pacing of the certification loop.
	RoundInterval time.Duration

	// RoundsPerEpoch is the number of certification rounds before the
	// epoch rotates.
	RoundsPerEpoch int

	// QuorumFraction is the stake percentage required to certify.
	QuorumFraction int

	// Debug enables debug logging.
	Debug bool
}

// parseFlags parses command-line flags into Config.
func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	flag.StringVar(&cfg.HTTPAddress, "http", ":8080", "HTTP API address")
	flag.Uint64Var(&cfg.StartEpoch, "epoch", 1, "Starting epoch")
	flag.DurationVar(&cfg.RoundInterval, "round-interval", 2*time.Second, "Certification loop interval")
	flag.IntVar(&cfg.RoundsPerEpoch, "rounds-per-epoch", 10, "Certification rounds per epoch")
	flag.IntVar(&cfg.QuorumFraction, "quorum", 67, "Stake percentage required to certify")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	flag.Parse()

	return cfg
}

// validate checks the configuration for values the node cannot run with.
func (c *Config) validate() error {
	if c.RoundInterval <= 0 {
		return fmt.Errorf("round interval must be positive, got %s", c.RoundInterval)
	}

	if c.RoundsPerEpoch <= 0 {
		return fmt.Errorf("rounds per epoch must be positive, got %d", c.RoundsPerEpoch)
	}

	if c.QuorumFraction <= 0 || c.QuorumFraction > 100 {
		return fmt.Errorf("quorum fraction must be in 1..100, got %d", c.QuorumFraction)
	}

	return nil
}

// LogLevel returns the slog level matching the configuration.
func (c *Config) LogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}

	return slog.LevelInfo
}
