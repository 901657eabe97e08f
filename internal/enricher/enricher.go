// Package enricher decides which external lookups a user message needs,
// performs them through the context cache, and assembles the enriched
// prompt sent to the model.
//
// Enrichment is best-effort: a failed or cancelled lookup is skipped, never
// an error. The assistant must always be able to respond even when every
// external source is unreachable.
package enricher

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ether/internal/config"
	"ether/internal/contextcache"
	"ether/internal/fetch"
	"ether/internal/types"
)

var (
	locationPattern = regexp.MustCompile(`(?i)\bin\s+([a-zA-Z][a-zA-Z .'-]*)`)
	topicPattern    = regexp.MustCompile(`(?i)\babout\s+([a-zA-Z][a-zA-Z .'-]*)`)
)

// Fetchers holds the opaque lookup capabilities, one per source type.
// A nil entry disables that source.
type Fetchers struct {
	Web     fetch.Func
	Weather fetch.Func
	News    fetch.Func
}

// Enricher classifies messages and builds enriched prompts.
type Enricher struct {
	cfg      config.EnricherConfig
	cache    *contextcache.Cache
	fetchers Fetchers
	log      *zap.Logger
	now      func() time.Time
}

// New creates an enricher over the given cache and fetchers.
func New(cfg config.EnricherConfig, cache *contextcache.Cache, fetchers Fetchers, log *zap.Logger) (*Enricher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid enricher config: %w", err)
	}
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Enricher{cfg: cfg, cache: cache, fetchers: fetchers, log: log, now: time.Now}, nil
}

// lookup is one planned external query.
type lookup struct {
	source types.SourceType
	query  string
	fn     fetch.Func
}

// Enrich classifies the message and returns the enriched prompt plus the
// sources whose lookups succeeded, in canonical source order. When no
// source applies, or every applicable lookup misses, it returns ("", nil)
// and the caller sends the original message unmodified.
func (e *Enricher) Enrich(ctx context.Context, userMessage string) (string, []types.SourceType) {
	plan := e.classify(userMessage)
	if len(plan) == 0 {
		return "", nil
	}

	// Lookups for distinct sources are independent; run them concurrently.
	// Each failure is swallowed here: the cache already recorded it as a
	// negative entry, and a miss simply drops that source.
	payloads := make(map[types.SourceType]string, len(plan))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, lu := range plan {
		lu := lu
		g.Go(func() error {
			res, err := e.cache.Get(gctx, lu.source, lu.query, func(fctx context.Context) (string, error) {
				return lu.fn(fctx, lu.query)
			})
			if err != nil || res.Miss {
				return nil
			}
			mu.Lock()
			payloads[lu.source] = res.Value
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(payloads) == 0 {
		e.log.Debug("all enrichment lookups missed",
			zap.Int("planned", len(plan)))
		return "", nil
	}

	sources := make([]types.SourceType, 0, len(payloads))
	for _, src := range types.AllSources {
		if _, ok := payloads[src]; ok {
			sources = append(sources, src)
		}
	}

	wantsTime := containsAny(strings.ToLower(userMessage), e.cfg.CurrentInfoKeywords)
	enriched := e.buildPrompt(userMessage, payloads, wantsTime)
	e.log.Debug("message enriched",
		zap.Int("sources", len(sources)))
	return enriched, sources
}

// classify maps the message onto the closed set of source lookups using
// the configured keyword heuristics. At most one query per source.
func (e *Enricher) classify(message string) []lookup {
	lower := strings.ToLower(message)
	var plan []lookup

	if e.fetchers.Web != nil && containsAny(lower, e.cfg.SearchKeywords) {
		if terms := e.searchTerms(lower); terms != "" {
			plan = append(plan, lookup{types.SourceWeb, terms, e.fetchers.Web})
		}
	}
	if e.fetchers.Weather != nil && containsAny(lower, e.cfg.WeatherKeywords) {
		location := extractAfter(locationPattern, message, e.cfg.DefaultLocation)
		plan = append(plan, lookup{types.SourceWeather, location, e.fetchers.Weather})
	}
	if e.fetchers.News != nil && containsAny(lower, e.cfg.NewsKeywords) {
		topic := extractAfter(topicPattern, message, e.cfg.DefaultNewsTopic)
		plan = append(plan, lookup{types.SourceNews, topic, e.fetchers.News})
	}
	return plan
}

// searchTerms distills a message into a short search query: the longest
// non-stopword tokens, capped by configuration.
func (e *Enricher) searchTerms(lowerMessage string) string {
	stop := make(map[string]bool, len(e.cfg.Stopwords))
	for _, w := range e.cfg.Stopwords {
		stop[w] = true
	}

	var terms []string
	for _, w := range strings.Fields(lowerMessage) {
		w = strings.Trim(w, ".,!?;:'\"()")
		if len(w) > 3 && !stop[w] {
			terms = append(terms, w)
		}
		if len(terms) >= e.cfg.MaxSearchTerms {
			break
		}
	}
	return strings.Join(terms, " ")
}

// buildPrompt assembles the delimited context block ahead of the user
// message. Sections appear in canonical source order so enriched prompts
// are reproducible.
func (e *Enricher) buildPrompt(userMessage string, payloads map[types.SourceType]string, wantsTime bool) string {
	var b strings.Builder

	b.WriteString("=== REAL-TIME CONTEXT ===\n")
	if wantsTime {
		fmt.Fprintf(&b, "Current time: %s\n", e.now().Format("2006-01-02 15:04:05 Monday"))
	}

	if payload, ok := payloads[types.SourceWeb]; ok {
		b.WriteString("\nSEARCH RESULTS:\n")
		b.WriteString(payload)
		b.WriteString("\n")
	}
	if payload, ok := payloads[types.SourceWeather]; ok {
		b.WriteString("\nWEATHER INFO:\n")
		b.WriteString(payload)
		b.WriteString("\n")
	}
	if payload, ok := payloads[types.SourceNews]; ok {
		b.WriteString("\nRECENT NEWS:\n")
		b.WriteString(payload)
		b.WriteString("\n")
	}

	b.WriteString("=== END CONTEXT ===\n\n")
	b.WriteString("Use the real-time context above when it is relevant, and cite its sources.\n\n")
	fmt.Fprintf(&b, "User query: %s", userMessage)
	return b.String()
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// extractAfter pulls the capture group of a "in <place>"/"about <topic>"
// pattern, falling back to the configured default.
func extractAfter(pattern *regexp.Regexp, message, fallback string) string {
	if m := pattern.FindStringSubmatch(message); m != nil {
		if v := strings.TrimSpace(strings.Trim(m[1], "?.!,")); v != "" {
			return v
		}
	}
	return fallback
}
