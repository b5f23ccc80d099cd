// Package config loads application configuration from an optional
// config.yaml and COREP_-prefixed environment variables.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Environment string           `yaml:"environment" mapstructure:"environment"`
	Store       StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic   AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Jina        JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Embeddings  EmbeddingsConfig `yaml:"embeddings" mapstructure:"embeddings"`
	Retrieval   RetrievalConfig  `yaml:"retrieval" mapstructure:"retrieval"`
	Validation  ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Corpus      CorpusConfig     `yaml:"corpus" mapstructure:"corpus"`
	Resilience  ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server      ServerConfig     `yaml:"server" mapstructure:"server"`
	Log         LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. For the sqlite driver
// DatabaseURL is the database file path. The pool sizes apply to postgres
// only.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// JinaConfig holds Jina AI API credentials.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EmbeddingsConfig selects and tunes the embedding provider. The mock
// provider embeds deterministically with no network access.
type EmbeddingsConfig struct {
	Provider   string  `yaml:"provider" mapstructure:"provider"`
	Model      string  `yaml:"model" mapstructure:"model"`
	Dimensions int     `yaml:"dimensions" mapstructure:"dimensions"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RetrievalConfig tunes hybrid search.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" mapstructure:"top_k"`
}

// ValidationConfig tunes the validation engine thresholds.
type ValidationConfig struct {
	Epsilon    float64 `yaml:"epsilon" mapstructure:"epsilon"`
	UpperBound float64 `yaml:"upper_bound" mapstructure:"upper_bound"`
}

// CorpusConfig configures corpus loading.
type CorpusConfig struct {
	File        string `yaml:"file" mapstructure:"file"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// ResilienceConfig tunes retry and circuit breaker behavior for the LLM call.
// Zero values fall back to the resilience package defaults.
type ResilienceConfig struct {
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Breaker BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// RetryConfig holds retry backoff knobs.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMS int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMS     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// BreakerConfig holds circuit breaker knobs.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path searches
// the working directory for config.yaml and treats a miss as "all defaults";
// a non-empty path names the file explicitly and a miss is an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("COREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so environment overrides reach Unmarshal.
	v.SetDefault("environment", "development")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "corep.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.1)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://api.jina.ai/v1")
	v.SetDefault("embeddings.provider", "jina")
	v.SetDefault("embeddings.model", "jina-embeddings-v3")
	v.SetDefault("embeddings.dimensions", 1024)
	v.SetDefault("embeddings.rate_limit", 0)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("validation.epsilon", 0.01)
	v.SetDefault("validation.upper_bound", 1_000_000_000_000.0)
	v.SetDefault("corpus.file", "data/pra_corep_c01.json")
	v.SetDefault("corpus.batch_size", 16)
	v.SetDefault("corpus.concurrency", 4)
	v.SetDefault("resilience.retry.max_attempts", 3)
	v.SetDefault("resilience.retry.initial_backoff_ms", 500)
	v.SetDefault("resilience.retry.max_backoff_ms", 30000)
	v.SetDefault("resilience.retry.multiplier", 2.0)
	v.SetDefault("resilience.retry.jitter_fraction", 0.25)
	v.SetDefault("resilience.breaker.failure_threshold", 5)
	v.SetDefault("resilience.breaker.reset_timeout_secs", 30)
	v.SetDefault("server.port", 8000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ConfigFileNotFoundError only occurs on the search path, so an explicit
	// file that is missing still fails.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given mode. Modes map to command
// groups: analyze and serve need the full pipeline, retrieve and corpus need
// the store and an embedder, audit and render need only the store defaults.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "postgres", "sqlite":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	switch c.Embeddings.Provider {
	case "jina", "mock":
	default:
		problems = append(problems, "embeddings.provider must be jina or mock")
	}
	if c.Embeddings.Dimensions <= 0 {
		problems = append(problems, "embeddings.dimensions must be > 0")
	}
	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > 10 {
		problems = append(problems, "retrieval.top_k must be between 1 and 10")
	}

	var needsEmbedder, needsLLM bool
	switch mode {
	case "analyze", "serve":
		needsEmbedder = true
		needsLLM = true
	case "retrieve", "corpus":
		needsEmbedder = true
	case "audit", "render":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if needsLLM && c.Anthropic.Key == "" {
		problems = append(problems, "anthropic.key is required")
	}
	if needsEmbedder && c.Embeddings.Provider == "jina" && c.Jina.Key == "" {
		problems = append(problems, "jina.key is required when embeddings.provider is jina")
	}
	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, "server.port must be > 0")
	}

	if len(problems) == 0 {
		return nil
	}
	return eris.Errorf("config: invalid %s configuration: %s", mode, strings.Join(problems, "; "))
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
