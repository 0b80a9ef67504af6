// Package config loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the search service
type Config struct {
	// Server
	HTTPPort         int           `env:"HTTP_PORT" envDefault:"8080"`
	Environment      string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0s"` // 0 = derived from rerank settings

	// Corpus: loaded from PostgreSQL when DATABASE_URL is set, otherwise from CORPUS_PATH
	CorpusPath  string `env:"CORPUS_PATH" envDefault:"data/news.json"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Ollama
	OllamaURL             string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaEmbeddingModel  string `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	OllamaRerankModel     string `env:"OLLAMA_RERANK_MODEL" envDefault:"gemma3:1b-it-qat"`
	EmbedBatchConcurrency int    `env:"EMBED_BATCH_CONCURRENCY" envDefault:"4"`
	EmbedCacheSize        int    `env:"EMBED_CACHE_SIZE" envDefault:"1024"`

	// Rerank oracle
	RerankTimeout     time.Duration `env:"RERANK_TIMEOUT" envDefault:"60s"`
	RerankMaxTokens   int           `env:"RERANK_MAX_TOKENS" envDefault:"10"`
	RerankConcurrency int           `env:"RERANK_CONCURRENCY" envDefault:"4"`
	OracleRateLimit   float64       `env:"ORACLE_RATE_LIMIT" envDefault:"0"` // requests per second, 0 = unlimited

	// Request defaults
	DefaultTopK    int `env:"DEFAULT_TOP_K" envDefault:"12"`
	DefaultRerankK int `env:"DEFAULT_RERANK_K" envDefault:"7"`
}

// writeTimeoutMargin covers embedding, retrieval and encoding on top of reranking.
const writeTimeoutMargin = 30 * time.Second

// Load loads configuration from .env file (if present) and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for correctness
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.DatabaseURL == "" && c.CorpusPath == "" {
		return fmt.Errorf("one of CORPUS_PATH or DATABASE_URL is required")
	}
	if c.RerankTimeout <= 0 {
		return fmt.Errorf("RERANK_TIMEOUT must be positive, got %s", c.RerankTimeout)
	}
	if c.RerankConcurrency < 1 {
		return fmt.Errorf("RERANK_CONCURRENCY must be at least 1, got %d", c.RerankConcurrency)
	}
	if c.DefaultTopK < 1 {
		return fmt.Errorf("DEFAULT_TOP_K must be at least 1, got %d", c.DefaultTopK)
	}
	if c.DefaultRerankK < 1 {
		return fmt.Errorf("DEFAULT_RERANK_K must be at least 1, got %d", c.DefaultRerankK)
	}
	if c.HTTPWriteTimeout < 0 {
		return fmt.Errorf("HTTP_WRITE_TIMEOUT must not be negative, got %s", c.HTTPWriteTimeout)
	}
	if c.HTTPWriteTimeout > 0 && c.HTTPWriteTimeout < c.RerankBudget() {
		return fmt.Errorf("HTTP_WRITE_TIMEOUT %s is shorter than the worst-case rerank of %s", c.HTTPWriteTimeout, c.RerankBudget())
	}
	if c.OracleRateLimit < 0 {
		return fmt.Errorf("ORACLE_RATE_LIMIT must not be negative, got %v", c.OracleRateLimit)
	}
	return nil
}

// RerankBudget is the worst-case rerank duration for a default-sized search:
// every oracle call of every concurrency round hits RERANK_TIMEOUT.
func (c *Config) RerankBudget() time.Duration {
	rounds := (c.DefaultTopK + c.RerankConcurrency - 1) / c.RerankConcurrency
	return time.Duration(rounds) * c.RerankTimeout
}

// WriteTimeout returns HTTP_WRITE_TIMEOUT, or the rerank budget plus a margin when unset.
func (c *Config) WriteTimeout() time.Duration {
	if c.HTTPWriteTimeout > 0 {
		return c.HTTPWriteTimeout
	}
	return c.RerankBudget() + writeTimeoutMargin
}
