package main

import (
	"context"
	"fmt"
	"time"

	"ether/internal/analytics"
	"ether/internal/config"
	"ether/internal/contextcache"
	"ether/internal/core"
	"ether/internal/enricher"
	"ether/internal/feedback"
	"ether/internal/fetch"
	"ether/internal/model"
	"ether/internal/scorer"
	"ether/internal/store"
)

// buildAssistant loads the configuration, validates it, and assembles the
// full core. The returned cleanup closes the store.
func buildAssistant(ctx context.Context) (*core.Assistant, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sc, err := scorer.New(cfg.Scorer)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(cfg.Storage.DatabasePath, sc, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = st.Close() }

	cache, err := contextcache.New(cfg.Cache, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	en, err := enricher.New(cfg.Enricher, cache, buildFetchers(cfg), logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	ledger, err := feedback.NewLedger(st, cfg.Feedback, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	caller, err := buildCaller(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	assistant, err := core.NewAssistant(st, en, analytics.NewReporter(st), ledger, caller, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return assistant, cleanup, nil
}

// buildFetchers constructs the external lookup capabilities. News is only
// enabled when an endpoint is configured.
func buildFetchers(cfg *config.Config) enricher.Fetchers {
	const fetchTimeout = 10 * time.Second

	fetchers := enricher.Fetchers{
		Web:     fetch.NewWebSearcher(cfg.Enricher.WebEndpoint, 5, fetchTimeout).Search,
		Weather: fetch.NewWeatherFetcher(cfg.Enricher.WeatherEndpoint, fetchTimeout).Fetch,
	}
	if endpoint := cfg.Enricher.NewsEndpoint; endpoint != "" {
		fetchers.News = fetch.NewNewsFetcher(endpoint, 5, fetchTimeout).Fetch
	}
	return fetchers
}

// buildCaller selects the model provider from configuration.
func buildCaller(ctx context.Context, cfg *config.Config) (model.Caller, error) {
	timeout, err := time.ParseDuration(cfg.Model.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid model timeout: %w", err)
	}

	switch cfg.Model.Provider {
	case "gemini":
		return model.NewGeminiCaller(ctx, cfg.Model.APIKey, cfg.Model.Model)
	case "openai":
		return model.NewOpenAICaller(model.OpenAIConfig{
			APIKey:  cfg.Model.APIKey,
			BaseURL: cfg.Model.BaseURL,
			Model:   cfg.Model.Model,
			Timeout: timeout,
		})
	default:
		return nil, fmt.Errorf("unknown model provider %q (valid: gemini, openai)", cfg.Model.Provider)
	}
}
