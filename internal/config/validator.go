package config

import (
	"fmt"
	"time"
)

// Validate checks configuration invariants.
func Validate(cfg *Config) error {
	if cfg.Debate.MaxRounds <= 0 {
		return fmt.Errorf("debate.max_rounds must be positive, got %d", cfg.Debate.MaxRounds)
	}
	if cfg.Debate.ConsensusThreshold < 0.5 || cfg.Debate.ConsensusThreshold > 1.0 {
		return fmt.Errorf("debate.consensus_threshold must be in [0.5, 1.0], got %v",
			cfg.Debate.ConsensusThreshold)
	}
	if cfg.Debate.SimilarityThreshold <= 0 || cfg.Debate.SimilarityThreshold >= 1.0 {
		return fmt.Errorf("debate.similarity_threshold must be in (0, 1), got %v",
			cfg.Debate.SimilarityThreshold)
	}
	switch cfg.Debate.Strategy {
	case "", "normal", "mediated", "scope_reduced", "perspective_shift":
	default:
		return fmt.Errorf("debate.strategy %q unknown", cfg.Debate.Strategy)
	}
	if cfg.Store.Dir == "" {
		return fmt.Errorf("store.dir cannot be empty")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Timeout.Operation != "" {
		if _, err := time.ParseDuration(cfg.Timeout.Operation); err != nil {
			return fmt.Errorf("timeout.operation: %w", err)
		}
	}
	return nil
}

// OperationTimeout parses the per-operation deadline, falling back to zero
// (which the registry maps to its default).
func (c *Config) OperationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout.Operation)
	if err != nil {
		return 0
	}
	return d
}
