package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// WriteFile persists a configuration to a YAML file atomically.
func WriteFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(toYAML(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// toYAML converts the mapstructure-tagged Config into plain maps so the
// YAML keys match what the loader reads back.
func toYAML(cfg *Config) map[string]interface{} {
	return map[string]interface{}{
		"log": map[string]interface{}{
			"level":  cfg.Log.Level,
			"format": cfg.Log.Format,
		},
		"debate": map[string]interface{}{
			"max_rounds":           cfg.Debate.MaxRounds,
			"consensus_threshold":  cfg.Debate.ConsensusThreshold,
			"similarity_threshold": cfg.Debate.SimilarityThreshold,
			"include_host":         cfg.Debate.IncludeHost,
			"strict":               cfg.Debate.Strict,
			"strategy":             cfg.Debate.Strategy,
		},
		"store": map[string]interface{}{
			"dir": cfg.Store.Dir,
		},
		"index": map[string]interface{}{
			"path": cfg.Index.Path,
		},
		"server": map[string]interface{}{
			"host":            cfg.Server.Host,
			"port":            cfg.Server.Port,
			"allowed_origins": cfg.Server.AllowedOrigins,
		},
		"timeout": map[string]interface{}{
			"operation": cfg.Timeout.Operation,
		},
	}
}
