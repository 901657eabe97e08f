package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all Ether configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Model provider used for the opaque model call
	Model ModelConfig `yaml:"model"`

	// Durable conversation storage
	Storage StorageConfig `yaml:"storage"`

	// Response quality scoring
	Scorer ScorerConfig `yaml:"scorer"`

	// External-context cache
	Cache CacheConfig `yaml:"cache"`

	// Message enrichment
	Enricher EnricherConfig `yaml:"enricher"`

	// Feedback ratings
	Feedback FeedbackConfig `yaml:"feedback"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig configures the remote model provider.
type ModelConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// StorageConfig configures the SQLite turn log.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// FeedbackConfig bounds the accepted rating range.
type FeedbackConfig struct {
	MinRating int `yaml:"min_rating"`
	MaxRating int `yaml:"max_rating"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "Ether",
		Version: "1.0.0",

		Model: ModelConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Timeout:  "120s",
		},

		Storage: StorageConfig{
			DatabasePath: "data/ether.db",
		},

		Scorer:   DefaultScorerConfig(),
		Cache:    DefaultCacheConfig(),
		Enricher: DefaultEnricherConfig(),

		Feedback: FeedbackConfig{
			MinRating: 1,
			MaxRating: 5,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file is not an
// error: defaults (plus environment overrides) are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Model.APIKey = key
		if c.Model.Provider == "" {
			c.Model.Provider = "gemini"
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Model.APIKey = key
		c.Model.Provider = "openai"
	}
	if path := os.Getenv("ETHER_DB_PATH"); path != "" {
		c.Storage.DatabasePath = path
	}
}

// Validate checks the configuration eagerly. Any failure here is fatal at
// startup; nothing in the request path re-validates these values.
func (c *Config) Validate() error {
	if err := c.Scorer.Validate(); err != nil {
		return fmt.Errorf("scorer config: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if err := c.Enricher.Validate(); err != nil {
		return fmt.Errorf("enricher config: %w", err)
	}
	if c.Feedback.MinRating >= c.Feedback.MaxRating {
		return fmt.Errorf("feedback rating bounds invalid: min=%d max=%d",
			c.Feedback.MinRating, c.Feedback.MaxRating)
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage database_path is required")
	}
	return nil
}
