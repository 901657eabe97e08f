package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Name != "Ether" {
		t.Errorf("expected Name=Ether, got %s", cfg.Name)
	}
	if cfg.Feedback.MinRating != 1 || cfg.Feedback.MaxRating != 5 {
		t.Errorf("unexpected rating bounds [%d, %d]", cfg.Feedback.MinRating, cfg.Feedback.MaxRating)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	// Ensure no env vars interfere
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ETHER_DB_PATH", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Model.Provider = "openai"
	cfg.Model.APIKey = "sk-test"
	cfg.Cache.WeatherTTL = "45m"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Model.Provider != "openai" {
		t.Errorf("expected Provider=openai, got %s", loaded.Model.Provider)
	}
	if loaded.Model.APIKey != "sk-test" {
		t.Errorf("expected APIKey=sk-test, got %s", loaded.Model.APIKey)
	}
	if loaded.Cache.WeatherTTL != "45m" {
		t.Errorf("expected WeatherTTL=45m, got %s", loaded.Cache.WeatherTTL)
	}
}

func TestConfig_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ETHER_DB_PATH", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.DatabasePath != DefaultConfig().Storage.DatabasePath {
		t.Errorf("expected defaults, got database_path=%s", cfg.Storage.DatabasePath)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "env-openai-key")
	t.Setenv("ETHER_DB_PATH", "/tmp/override.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.APIKey != "env-openai-key" {
		t.Errorf("expected env API key, got %s", cfg.Model.APIKey)
	}
	if cfg.Model.Provider != "openai" {
		t.Errorf("expected provider=openai from env, got %s", cfg.Model.Provider)
	}
	if cfg.Storage.DatabasePath != "/tmp/override.db" {
		t.Errorf("expected db path override, got %s", cfg.Storage.DatabasePath)
	}
}

func TestValidate_WeightSum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scorer.Weights.Coherence = 0.5 // sum now 1.2

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure for weight sum")
	}
}

func TestValidate_CacheTTLs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CacheConfig)
	}{
		{"unparseable ttl", func(c *CacheConfig) { c.WebTTL = "soon" }},
		{"negative ttl", func(c *CacheConfig) { c.NewsTTL = "-5m" }},
		{"negative cache ttl too long", func(c *CacheConfig) { c.NegativeTTL = "3h" }},
		{"zero capacity", func(c *CacheConfig) { c.MaxEntriesPerSource = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg.Cache)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestValidate_RatingBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Feedback.MinRating = 5
	cfg.Feedback.MaxRating = 1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure for inverted rating bounds")
	}
}
