package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/consilium/internal/config"
	"github.com/hugo-lorenzo-mato/consilium/internal/core"
	"github.com/hugo-lorenzo-mato/consilium/internal/index"
	"github.com/hugo-lorenzo-mato/consilium/internal/logging"
	"github.com/hugo-lorenzo-mato/consilium/internal/service"
	"github.com/hugo-lorenzo-mato/consilium/internal/store"
)

// loadConfig loads configuration honoring --config and bound flags.
func loadConfig() (*config.Config, *config.Loader, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

// buildLogger creates the application logger from config.
func buildLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// openStore opens the debate store.
func openStore(cfg *config.Config) *store.DebateStore {
	return store.New(cfg.Store.Dir)
}

// openIndex opens the debate index; a missing index is non-fatal for
// commands that can walk the store instead.
func openIndex(cfg *config.Config) (*index.DebateIndex, error) {
	path := cfg.Index.Path
	if path == "" {
		path = config.DefaultIndexPath
	}
	return index.Open(path)
}

// debateConfigFromFlags maps config plus command flags onto the service
// configuration.
func debateConfigFromFlags(cfg *config.Config, maxRounds int, threshold float64, includeHost, strict bool, strategyName string) (*service.DebateConfig, error) {
	dc := service.DefaultDebateConfig()
	dc.MaxRounds = cfg.Debate.MaxRounds
	dc.ConsensusThreshold = cfg.Debate.ConsensusThreshold
	dc.SimilarityThreshold = cfg.Debate.SimilarityThreshold
	dc.IncludeHost = cfg.Debate.IncludeHost
	dc.Strict = cfg.Debate.Strict

	if maxRounds > 0 {
		dc.MaxRounds = maxRounds
	}
	if threshold > 0 {
		dc.ConsensusThreshold = threshold
	}
	dc.IncludeHost = includeHost
	dc.Strict = strict

	name := strategyName
	if name == "" {
		name = cfg.Debate.Strategy
	}
	strategy, err := service.ParseStrategy(name)
	if err != nil {
		return nil, err
	}
	dc.Strategy = strategy
	return dc, nil
}

// hostAnalysisFile is the JSON shape accepted by --host-analysis.
type hostAnalysisFile struct {
	AnalysisText string   `json:"analysis_text"`
	Conclusion   string   `json:"conclusion"`
	Confidence   *float64 `json:"confidence"`
	KeyPoints    []string `json:"key_points"`
}

// readHostAnalysis loads a host analysis injection from a JSON file.
func readHostAnalysis(path string) (*core.Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading host analysis file: %w", err)
	}
	var file hostAnalysisFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing host analysis file: %w", err)
	}

	analysis := &core.Analysis{
		AnalysisText: file.AnalysisText,
		Conclusion:   file.Conclusion,
		KeyPoints:    file.KeyPoints,
	}
	if file.Confidence != nil {
		analysis.Confidence = *file.Confidence
		analysis.HasConfidence = true
	}
	return analysis, nil
}

// readHostReview loads a host review injection from a JSON file.
func readHostReview(path string) (*core.Review, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading host review file: %w", err)
	}
	var review core.Review
	if err := json.Unmarshal(data, &review); err != nil {
		return nil, fmt.Errorf("parsing host review file: %w", err)
	}
	return &review, nil
}

// readHostDebate loads a host debate injection from a JSON file.
func readHostDebate(path string) (*core.DebateOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading host debate file: %w", err)
	}
	var outcome core.DebateOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return nil, fmt.Errorf("parsing host debate file: %w", err)
	}
	return &outcome, nil
}

// resolveTaskID resolves a possibly partial task id against the store,
// preferring exact matches and falling back to fuzzy matching.
func resolveTaskID(debateStore *store.DebateStore, query string) (string, error) {
	ids, err := debateStore.ListTasks()
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		if id == query {
			return id, nil
		}
	}

	matches := fuzzy.Find(query, ids)
	if len(matches) == 0 {
		return "", fmt.Errorf("no debate matches %q", query)
	}
	return matches[0].Str, nil
}
