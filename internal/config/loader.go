package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads the configuration from a YAML file and the environment.
// A missing config file is not an error; defaults plus STORESAGE_*
// environment variables are enough to start.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.storesage")
		v.AddConfigPath("/etc/storesage")
	}

	v.SetEnvPrefix("STORESAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandEnvVars(&config)

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.debug", false)

	v.SetDefault("database.path", "./data/storesage.db")
	v.SetDefault("database.seed", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 3600)

	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 30)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.7)

	v.SetDefault("embedding.provider", "local")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimension", 64)

	v.SetDefault("retrieval.product_top_k", 3)
	v.SetDefault("retrieval.store_top_k", 2)
	v.SetDefault("retrieval.promotion_top_k", 3)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.min_score", 0.30)
	v.SetDefault("retrieval.keyword_boost", 0.5)

	v.SetDefault("prompt.max_bytes", 6144)
	v.SetDefault("prompt.history_window", 5)

	v.SetDefault("log.level", "info")
}

// expandEnvVars expands ${VAR} references in secret-bearing fields so keys
// can live in the environment while the YAML stays checked in.
func expandEnvVars(config *Config) {
	config.LLM.APIKey = os.ExpandEnv(config.LLM.APIKey)
	config.LLM.BaseURL = os.ExpandEnv(config.LLM.BaseURL)
	config.Embedding.APIKey = os.ExpandEnv(config.Embedding.APIKey)
	config.Embedding.BaseURL = os.ExpandEnv(config.Embedding.BaseURL)
	config.Redis.Password = os.ExpandEnv(config.Redis.Password)
}
