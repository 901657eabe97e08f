package config

import "fmt"

// EnricherConfig configures intent classification and prompt assembly.
// The keyword lists are product-tuning constants surfaced as configuration
// so classification stays a replaceable pure function.
type EnricherConfig struct {
	// Keywords that trigger a weather lookup.
	WeatherKeywords []string `yaml:"weather_keywords"`

	// Keywords that trigger a news lookup.
	NewsKeywords []string `yaml:"news_keywords"`

	// Question openers that trigger a general web search.
	SearchKeywords []string `yaml:"search_keywords"`

	// Indicators that the user wants current information; adds the current
	// time to the context block when another source fires.
	CurrentInfoKeywords []string `yaml:"current_info_keywords"`

	// Words excluded when building a web search query from the message.
	Stopwords []string `yaml:"stopwords"`

	// Fallbacks when no location/topic can be extracted from the message.
	DefaultLocation  string `yaml:"default_location"`
	DefaultNewsTopic string `yaml:"default_news_topic"`

	// MaxSearchTerms caps the number of terms used in a web search query.
	MaxSearchTerms int `yaml:"max_search_terms"`

	// Source endpoints. Empty web/weather endpoints select the public
	// defaults; an empty news endpoint disables the news source.
	WebEndpoint     string `yaml:"web_endpoint"`
	WeatherEndpoint string `yaml:"weather_endpoint"`
	NewsEndpoint    string `yaml:"news_endpoint"`
}

// DefaultEnricherConfig returns the default intent heuristics.
func DefaultEnricherConfig() EnricherConfig {
	return EnricherConfig{
		WeatherKeywords: []string{
			"weather", "temperature", "forecast", "climate", "rain", "sunny",
		},
		NewsKeywords: []string{
			"news", "headlines", "breaking", "reports", "updates",
		},
		SearchKeywords: []string{
			"what", "who", "when", "where", "why", "how",
		},
		CurrentInfoKeywords: []string{
			"today", "now", "current", "latest", "recent", "what's happening",
		},
		Stopwords: []string{
			"what", "who", "when", "where", "why", "how",
			"the", "and", "or", "but",
		},
		DefaultLocation:  "New York",
		DefaultNewsTopic: "technology",
		MaxSearchTerms:   3,
	}
}

// Validate fails fast on an unusable enricher setup.
func (c EnricherConfig) Validate() error {
	if len(c.WeatherKeywords) == 0 && len(c.NewsKeywords) == 0 && len(c.SearchKeywords) == 0 {
		return fmt.Errorf("at least one keyword list must be non-empty")
	}
	if c.MaxSearchTerms <= 0 {
		return fmt.Errorf("max_search_terms must be positive, got %d", c.MaxSearchTerms)
	}
	if c.DefaultLocation == "" {
		return fmt.Errorf("default_location is required")
	}
	if c.DefaultNewsTopic == "" {
		return fmt.Errorf("default_news_topic is required")
	}
	return nil
}
