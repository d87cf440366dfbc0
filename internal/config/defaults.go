package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	DefaultStoreDir  = ".consilium/debates"
	DefaultIndexPath = ".consilium/index.db"
	DefaultHost      = "127.0.0.1"
	DefaultPort      = 8799
)

// setDefaults registers the default value for every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")

	v.SetDefault("debate.max_rounds", 5)
	v.SetDefault("debate.consensus_threshold", 0.8)
	v.SetDefault("debate.similarity_threshold", 0.3)
	v.SetDefault("debate.include_host", true)
	v.SetDefault("debate.strict", false)
	v.SetDefault("debate.strategy", "normal")

	v.SetDefault("store.dir", DefaultStoreDir)
	v.SetDefault("index.path", DefaultIndexPath)

	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("timeout.operation", "5m")
}

// Default returns the default configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg) // Defaults always unmarshal cleanly.
	return &cfg
}
