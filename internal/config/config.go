// Package config loads and validates application configuration from
// defaults, config files, environment variables and CLI flags.
package config

// Config holds all application configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Debate  DebateConfig  `mapstructure:"debate"`
	Store   StoreConfig   `mapstructure:"store"`
	Index   IndexConfig   `mapstructure:"index"`
	Server  ServerConfig  `mapstructure:"server"`
	Timeout TimeoutConfig `mapstructure:"timeout"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DebateConfig configures debate execution.
type DebateConfig struct {
	MaxRounds           int     `mapstructure:"max_rounds"`
	ConsensusThreshold  float64 `mapstructure:"consensus_threshold"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	IncludeHost         bool    `mapstructure:"include_host"`
	Strict              bool    `mapstructure:"strict"`
	Strategy            string  `mapstructure:"strategy"`
}

// StoreConfig configures the deliberation log.
type StoreConfig struct {
	// Dir is the root directory of all persisted debates.
	Dir string `mapstructure:"dir"`
}

// IndexConfig configures the sqlite debate index.
type IndexConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the read API in serve mode.
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TimeoutConfig configures participant deadlines.
type TimeoutConfig struct {
	// Operation is the analyze/review/debate deadline (duration string),
	// read through Config.OperationTimeout; the CLI does not apply it.
	Operation string `mapstructure:"operation"`
}
