// Package config provides the layered, viper-backed configuration for the
// coordinator: config.base.yaml, overlaid by config.<environment>.yaml,
// overlaid by config.<environment>.local.yaml, overlaid by CO_-prefixed
// environment variables. Grounded on pkg/common/config/config.go's
// Load/setDefaults shape.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CacheConfig maps spec.md §6's cache.* options.
type CacheConfig struct {
	MemoryCapacity int           `mapstructure:"memory_capacity"`
	DiskQuotaBytes int64         `mapstructure:"disk_quota_bytes"`
	TTLSeconds     int           `mapstructure:"ttl_seconds"`
	KeyStrategy    string        `mapstructure:"key_strategy"` // simple | context-aware | context+keyword-aware
	TTL            time.Duration `mapstructure:"-"`
}

// PlanConfig maps spec.md §6's plan.* options.
type PlanConfig struct {
	ComplexityThreshold float64 `mapstructure:"complexity_threshold"`
}

// ThinkingConfig maps spec.md §6's thinking.* options.
type ThinkingConfig struct {
	MaxSearchIterations int `mapstructure:"max_search_iterations"`
}

// RetrieverConfig maps spec.md §6's retriever.* options.
type RetrieverConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// CoordinatorConfig maps spec.md §6's coordinator.* options.
type CoordinatorConfig struct {
	TotalTimeoutSeconds int `mapstructure:"total_timeout_seconds"`
	WorkerPoolSize      int `mapstructure:"worker_pool_size"`
}

// ChainExplorationConfig maps spec.md §6's chain_exploration.* options.
type ChainExplorationConfig struct {
	MaxSteps        int `mapstructure:"max_steps"`
	SeedEntityLimit int `mapstructure:"seed_entity_limit"`
}

// GraphConfig holds the Neo4j connection settings the graph store dials.
type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// VectorConfig holds the pgvector/Postgres connection settings.
type VectorConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// LLMConfig holds the OpenAI-compatible chat and embedding endpoint settings.
type LLMConfig struct {
	APIKey          string `mapstructure:"api_key"`
	ChatModel       string `mapstructure:"chat_model"`
	EmbeddingModel  string `mapstructure:"embedding_model"`
	EmbeddingDims   int    `mapstructure:"embedding_dims"`
	BaseURL         string `mapstructure:"base_url"`
}

// TracingConfig controls the process-wide span provider.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// Config is the complete application configuration (spec.md §6).
type Config struct {
	Environment      string                  `mapstructure:"environment"`
	Cache            CacheConfig             `mapstructure:"cache"`
	Plan             PlanConfig              `mapstructure:"plan"`
	Thinking         ThinkingConfig          `mapstructure:"thinking"`
	Retriever        RetrieverConfig         `mapstructure:"retriever"`
	Coordinator      CoordinatorConfig       `mapstructure:"coordinator"`
	ChainExploration ChainExplorationConfig  `mapstructure:"chain_exploration"`
	Graph            GraphConfig             `mapstructure:"graph"`
	Vector           VectorConfig            `mapstructure:"vector"`
	LLM              LLMConfig               `mapstructure:"llm"`
	Tracing          TracingConfig           `mapstructure:"tracing"`
}

// Load layers config.base.yaml -> config.<environment>.yaml ->
// config.<environment>.local.yaml -> CO_-prefixed environment variables,
// the way pkg/common/config.Load layers the teacher's configuration.
// configDir defaults to "configs" if empty; environment defaults to the
// CO_ENVIRONMENT env var, then "dev".
func Load(configDir, environment string) (*Config, error) {
	if configDir == "" {
		configDir = "configs"
	}
	if environment == "" {
		environment = os.Getenv("CO_ENVIRONMENT")
	}
	if environment == "" {
		environment = "dev"
	}

	v := viper.New()
	setDefaults(v)

	base := viper.New()
	setDefaults(base)
	base.SetConfigFile(configDir + "/config.base.yaml")
	if err := mergeIfPresent(v, base); err != nil {
		return nil, err
	}

	env := viper.New()
	env.SetConfigFile(fmt.Sprintf("%s/config.%s.yaml", configDir, environment))
	if err := mergeIfPresent(v, env); err != nil {
		return nil, err
	}

	local := viper.New()
	local.SetConfigFile(fmt.Sprintf("%s/config.%s.local.yaml", configDir, environment))
	if err := mergeIfPresent(v, local); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("CO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal failed: %w", err)
	}
	cfg.Environment = environment
	if cfg.Cache.TTLSeconds > 0 {
		cfg.Cache.TTL = time.Duration(cfg.Cache.TTLSeconds) * time.Second
	}
	return &cfg, nil
}

// mergeIfPresent reads layer's config file into dst, tolerating a missing
// file (each layer above base.yaml is optional).
func mergeIfPresent(dst, layer *viper.Viper) error {
	if err := layer.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", layer.ConfigFileUsed(), err)
	}
	return dst.MergeConfigMap(layer.AllSettings())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")

	v.SetDefault("cache.memory_capacity", 1000)
	v.SetDefault("cache.disk_quota_bytes", int64(1)<<30) // 1 GiB
	v.SetDefault("cache.ttl_seconds", 0)                 // 0 = no expiry
	v.SetDefault("cache.key_strategy", "context-aware")

	v.SetDefault("plan.complexity_threshold", 0.7)

	v.SetDefault("thinking.max_search_iterations", 5)

	v.SetDefault("retriever.timeout_seconds", 60)

	v.SetDefault("coordinator.total_timeout_seconds", 300)
	v.SetDefault("coordinator.worker_pool_size", 4)

	v.SetDefault("chain_exploration.max_steps", 3)
	v.SetDefault("chain_exploration.seed_entity_limit", 3)

	v.SetDefault("graph.uri", "bolt://localhost:7687")
	v.SetDefault("graph.username", "neo4j")

	v.SetDefault("vector.table", "text_chunks")

	v.SetDefault("llm.chat_model", "gpt-4o-mini")
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.embedding_dims", 1536)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampling_rate", 1.0)
}

// IsProduction reports whether c.Environment names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}
