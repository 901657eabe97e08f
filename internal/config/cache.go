package config

import (
	"fmt"
	"time"
)

// CacheConfig configures the external-context cache. TTLs are duration
// strings ("30m", "2h") parsed at startup.
type CacheConfig struct {
	WebTTL     string `yaml:"web_ttl"`
	WeatherTTL string `yaml:"weather_ttl"`
	NewsTTL    string `yaml:"news_ttl"`

	// NegativeTTL applies to entries recording a failed fetch. It must be
	// shorter than every success TTL so a failing source is retried before
	// fresh data would have expired.
	NegativeTTL string `yaml:"negative_ttl"`

	// MaxEntriesPerSource bounds each source's shelf; exceeding it evicts
	// the least-recently-used entry.
	MaxEntriesPerSource int `yaml:"max_entries_per_source"`
}

// DefaultCacheConfig returns the default cache policy: weather and news
// expire quickly, general web search over a longer window.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		WebTTL:              "2h",
		WeatherTTL:          "20m",
		NewsTTL:             "30m",
		NegativeTTL:         "2m",
		MaxEntriesPerSource: 256,
	}
}

// ParsedTTLs holds the cache TTLs after duration parsing.
type ParsedTTLs struct {
	Web      time.Duration
	Weather  time.Duration
	News     time.Duration
	Negative time.Duration
}

// Parse converts the duration strings. Call Validate first; Parse assumes
// the strings are well-formed.
func (c CacheConfig) Parse() (ParsedTTLs, error) {
	var p ParsedTTLs
	var err error
	if p.Web, err = time.ParseDuration(c.WebTTL); err != nil {
		return p, fmt.Errorf("web_ttl: %w", err)
	}
	if p.Weather, err = time.ParseDuration(c.WeatherTTL); err != nil {
		return p, fmt.Errorf("weather_ttl: %w", err)
	}
	if p.News, err = time.ParseDuration(c.NewsTTL); err != nil {
		return p, fmt.Errorf("news_ttl: %w", err)
	}
	if p.Negative, err = time.ParseDuration(c.NegativeTTL); err != nil {
		return p, fmt.Errorf("negative_ttl: %w", err)
	}
	return p, nil
}

// Validate fails fast on an unusable cache policy.
func (c CacheConfig) Validate() error {
	p, err := c.Parse()
	if err != nil {
		return err
	}
	if p.Web <= 0 || p.Weather <= 0 || p.News <= 0 || p.Negative <= 0 {
		return fmt.Errorf("all TTLs must be positive")
	}
	if p.Negative >= p.Web || p.Negative >= p.Weather || p.Negative >= p.News {
		return fmt.Errorf("negative_ttl %s must be shorter than every success TTL", p.Negative)
	}
	if c.MaxEntriesPerSource <= 0 {
		return fmt.Errorf("max_entries_per_source must be positive, got %d", c.MaxEntriesPerSource)
	}
	return nil
}
