package enricher

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"ether/internal/config"
	"ether/internal/contextcache"
	"ether/internal/types"
)

func newTestEnricher(t *testing.T, fetchers Fetchers) *Enricher {
	t.Helper()
	cache, err := contextcache.New(config.DefaultCacheConfig(), nil)
	if err != nil {
		t.Fatalf("failed to build cache: %v", err)
	}
	e, err := New(config.DefaultEnricherConfig(), cache, fetchers, nil)
	if err != nil {
		t.Fatalf("failed to build enricher: %v", err)
	}
	return e
}

func stubFetch(payload string) func(ctx context.Context, query string) (string, error) {
	return func(ctx context.Context, query string) (string, error) {
		return payload, nil
	}
}

func failingFetch(ctx context.Context, query string) (string, error) {
	return "", fmt.Errorf("source unreachable")
}

func TestEnrichWeatherMessage(t *testing.T) {
	var gotQuery string
	e := newTestEnricher(t, Fetchers{
		Weather: func(ctx context.Context, query string) (string, error) {
			gotQuery = query
			return "Temperature: 22C\nCondition: Sunny", nil
		},
	})

	enriched, sources := e.Enrich(context.Background(), "weather in Boston")

	if gotQuery != "Boston" {
		t.Errorf("expected location query %q, got %q", "Boston", gotQuery)
	}
	if len(sources) != 1 || sources[0] != types.SourceWeather {
		t.Errorf("expected weather source, got %v", sources)
	}
	if !strings.Contains(enriched, "WEATHER INFO:") || !strings.Contains(enriched, "Temperature: 22C") {
		t.Errorf("payload missing from enriched prompt:\n%s", enriched)
	}
	if !strings.Contains(enriched, "=== REAL-TIME CONTEXT ===") ||
		!strings.Contains(enriched, "=== END CONTEXT ===") {
		t.Errorf("context delimiters missing:\n%s", enriched)
	}
	if !strings.Contains(enriched, "User query: weather in Boston") {
		t.Errorf("original message missing from enriched prompt:\n%s", enriched)
	}
}

func TestEnrichFallsBackToDefaultLocation(t *testing.T) {
	var gotQuery string
	e := newTestEnricher(t, Fetchers{
		Weather: func(ctx context.Context, query string) (string, error) {
			gotQuery = query
			return "payload", nil
		},
	})

	e.Enrich(context.Background(), "how's the weather looking")

	if gotQuery != "New York" {
		t.Errorf("expected default location, got %q", gotQuery)
	}
}

func TestEnrichNewsTopic(t *testing.T) {
	var gotQuery string
	e := newTestEnricher(t, Fetchers{
		News: func(ctx context.Context, query string) (string, error) {
			gotQuery = query
			return "1. Something happened", nil
		},
	})

	enriched, sources := e.Enrich(context.Background(), "any news about quantum computing")

	if gotQuery != "quantum computing" {
		t.Errorf("expected extracted topic, got %q", gotQuery)
	}
	if len(sources) != 1 || sources[0] != types.SourceNews {
		t.Errorf("expected news source, got %v", sources)
	}
	if !strings.Contains(enriched, "RECENT NEWS:") {
		t.Errorf("news section missing:\n%s", enriched)
	}
}

func TestEnrichWebSearchTerms(t *testing.T) {
	var gotQuery string
	e := newTestEnricher(t, Fetchers{
		Web: func(ctx context.Context, query string) (string, error) {
			gotQuery = query
			return "1. A search result", nil
		},
	})

	_, sources := e.Enrich(context.Background(), "what is the golang language")

	if gotQuery != "golang language" {
		t.Errorf("expected stopword-free terms, got %q", gotQuery)
	}
	if len(sources) != 1 || sources[0] != types.SourceWeb {
		t.Errorf("expected web source, got %v", sources)
	}
}

func TestEnrichNoIntent(t *testing.T) {
	called := false
	e := newTestEnricher(t, Fetchers{
		Web: func(ctx context.Context, query string) (string, error) {
			called = true
			return "payload", nil
		},
	})

	enriched, sources := e.Enrich(context.Background(), "thanks, that helps a lot")

	if enriched != "" || sources != nil {
		t.Errorf("expected no enrichment, got %q / %v", enriched, sources)
	}
	if called {
		t.Error("no fetch should run for a message without intent")
	}
}

func TestEnrichAllLookupsFailed(t *testing.T) {
	e := newTestEnricher(t, Fetchers{Weather: failingFetch})

	enriched, sources := e.Enrich(context.Background(), "weather in Paris")

	if enriched != "" || sources != nil {
		t.Errorf("expected degradation to no enrichment, got %q / %v", enriched, sources)
	}
}

func TestEnrichNilFetcherDisablesSource(t *testing.T) {
	e := newTestEnricher(t, Fetchers{})

	enriched, sources := e.Enrich(context.Background(), "weather in Paris")

	if enriched != "" || sources != nil {
		t.Errorf("expected no enrichment without fetchers, got %q / %v", enriched, sources)
	}
}

func TestEnrichMultipleSourcesCanonicalOrder(t *testing.T) {
	e := newTestEnricher(t, Fetchers{
		Weather: stubFetch("weather payload"),
		News:    stubFetch("news payload"),
	})

	enriched, sources := e.Enrich(context.Background(), "news updates and weather in Berlin")

	if len(sources) != 2 || sources[0] != types.SourceWeather || sources[1] != types.SourceNews {
		t.Errorf("expected [weather news], got %v", sources)
	}
	weatherAt := strings.Index(enriched, "WEATHER INFO:")
	newsAt := strings.Index(enriched, "RECENT NEWS:")
	if weatherAt < 0 || newsAt < 0 || weatherAt > newsAt {
		t.Errorf("sections out of order:\n%s", enriched)
	}
}

func TestEnrichCurrentTimeLine(t *testing.T) {
	e := newTestEnricher(t, Fetchers{Weather: stubFetch("payload")})
	ctx := context.Background()

	enriched, _ := e.Enrich(ctx, "what is the current weather in Rome")
	if !strings.Contains(enriched, "Current time:") {
		t.Errorf("expected time line for a current-info message:\n%s", enriched)
	}

	enriched, _ = e.Enrich(ctx, "weather in Rome")
	if strings.Contains(enriched, "Current time:") {
		t.Errorf("unexpected time line without current-info indicators:\n%s", enriched)
	}
}

func TestEnrichReusesCachedLookup(t *testing.T) {
	calls := 0
	e := newTestEnricher(t, Fetchers{
		Weather: func(ctx context.Context, query string) (string, error) {
			calls++
			return "payload", nil
		},
	})
	ctx := context.Background()

	e.Enrich(ctx, "weather in Oslo")
	e.Enrich(ctx, "what's the weather in Oslo")

	if calls != 1 {
		t.Errorf("expected one fetch across repeated lookups, got %d", calls)
	}
}

func TestSearchTermsCapped(t *testing.T) {
	cfg := config.DefaultEnricherConfig()
	cfg.MaxSearchTerms = 2
	cache, err := contextcache.New(config.DefaultCacheConfig(), nil)
	if err != nil {
		t.Fatalf("failed to build cache: %v", err)
	}
	e, err := New(cfg, cache, Fetchers{}, nil)
	if err != nil {
		t.Fatalf("failed to build enricher: %v", err)
	}

	terms := e.searchTerms("what makes distributed systems consensus difficult")
	if got := len(strings.Fields(terms)); got != 2 {
		t.Errorf("expected 2 terms, got %d (%q)", got, terms)
	}
}
