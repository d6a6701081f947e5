// Package config provides configuration loading and validation.
// Everything is read once at process start; there is no hot reload.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Recall modes. "auto" picks semantic when a GenAI key is configured and
// lexical otherwise.
const (
	RecallAuto     = "auto"
	RecallLexical  = "lexical"
	RecallSemantic = "semantic"
)

// Config holds the application configuration, parsed from environment
// variables (optionally prefixed REMEMBOT_).
type Config struct {
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	TelegramToken string `envconfig:"TELEGRAM_TOKEN" required:"true"`

	// DBDriver selects the store: "sqlite" or "postgres".
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"./remembot.db"`

	// GoogleAPIKey enables the embedding/completion capability. Without it
	// the assistant runs in lexical-only mode.
	GoogleAPIKey string `envconfig:"GOOGLE_API_KEY"`

	// RulesPath points at the optional YAML rule table. A missing file
	// degrades to empty tables.
	RulesPath string `envconfig:"RULES_PATH"`

	RecallMode          string        `envconfig:"RECALL_MODE" default:"auto"`
	SimilarityThreshold float32       `envconfig:"SIMILARITY_THRESHOLD" default:"0.65"`
	RecallLimit         int           `envconfig:"RECALL_LIMIT" default:"5"`
	MinStoreLength      int           `envconfig:"MIN_STORE_LENGTH" default:"6"`
	CallTimeout         time.Duration `envconfig:"CALL_TIMEOUT" default:"10s"`
}

// Load parses the environment and resolves derived defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("remembot", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveDefaults validates the driver and recall mode and derives the
// effective recall mode from capability availability.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	switch c.RecallMode {
	case RecallAuto:
		if c.GoogleAPIKey != "" {
			c.RecallMode = RecallSemantic
		} else {
			c.RecallMode = RecallLexical
		}
	case RecallLexical:
	case RecallSemantic:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("RECALL_MODE=semantic requires GOOGLE_API_KEY")
		}
	default:
		return fmt.Errorf("unsupported RECALL_MODE: %s", c.RecallMode)
	}

	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	if c.RecallLimit <= 0 {
		return fmt.Errorf("RECALL_LIMIT must be positive, got %d", c.RecallLimit)
	}
	return nil
}
