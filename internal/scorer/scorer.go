// Package scorer computes a deterministic quality score for a stored turn.
// Scoring reads only fields of the turn itself; no I/O, no clocks, no
// external state. Identical turns always produce identical scores, which
// keeps analytics aggregation replay-stable.
package scorer

import (
	"fmt"
	"strings"
	"unicode"

	"ether/internal/config"
	"ether/internal/types"
)

// Feature names used in the quality breakdown.
const (
	FeatureLength     = "length"
	FeatureLatency    = "latency"
	FeatureEnrichment = "enrichment"
	FeatureCoherence  = "coherence"
)

// Scorer scores turns with a fixed weighted blend of sub-scores.
type Scorer struct {
	cfg config.ScorerConfig
}

// New creates a scorer, validating the configured weights. Invalid weights
// are a configuration error and fail here, never at scoring time.
func New(cfg config.ScorerConfig) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scorer config: %w", err)
	}
	return &Scorer{cfg: cfg}, nil
}

// Score computes the quality score and per-feature breakdown for a turn.
// Every breakdown value is in [0,1]; the returned score equals the weighted
// sum of the breakdown and is likewise in [0,1].
func (s *Scorer) Score(t types.Turn) (float64, map[string]float64) {
	breakdown := map[string]float64{
		FeatureLength:     s.lengthScore(t.ModelResponse),
		FeatureLatency:    s.latencyScore(t.LatencyMs),
		FeatureEnrichment: s.enrichmentScore(t),
		FeatureCoherence:  coherenceScore(t.ModelResponse),
	}

	w := s.cfg.Weights
	score := w.Length*breakdown[FeatureLength] +
		w.Latency*breakdown[FeatureLatency] +
		w.Enrichment*breakdown[FeatureEnrichment] +
		w.Coherence*breakdown[FeatureCoherence]

	return clamp01(score), breakdown
}

// lengthScore rates the response length against the target band. In-band
// responses score 1.0; the score falls off linearly below the band and
// hyperbolically above it.
func (s *Scorer) lengthScore(response string) float64 {
	n := len([]rune(response))
	min, max := s.cfg.TargetMinChars, s.cfg.TargetMaxChars
	switch {
	case n == 0:
		return 0.0
	case n < min:
		return float64(n) / float64(min)
	case n > max:
		return float64(max) / float64(n)
	default:
		return 1.0
	}
}

// latencyScore is 1.0 at or below the threshold and decays monotonically
// past it.
func (s *Scorer) latencyScore(latencyMs int64) float64 {
	if latencyMs <= s.cfg.LatencyThresholdMs {
		return 1.0
	}
	return float64(s.cfg.LatencyThresholdMs) / float64(latencyMs)
}

// enrichmentScore checks whether an enriched turn's response demonstrably
// references the enrichment payload, via keyword overlap. Turns without
// enrichment get a fixed neutral score so the breakdown always carries all
// features.
func (s *Scorer) enrichmentScore(t types.Turn) float64 {
	if !t.Enriched() {
		return s.cfg.NoEnrichmentScore
	}

	payload := tokenSet(t.EnrichedMessage)
	// The user's own words appear in the enriched message too; echoing
	// those proves nothing about enrichment use.
	for tok := range tokenSet(t.UserMessage) {
		delete(payload, tok)
	}

	overlap := 0
	for tok := range tokenSet(t.ModelResponse) {
		if payload[tok] {
			overlap++
		}
	}
	if overlap >= s.cfg.MinOverlapTokens {
		return 1.0
	}
	return s.cfg.EnrichmentMissScore
}

// coherenceScore penalizes degenerate responses: empty text, heavy token
// repetition, and truncated-looking endings.
func coherenceScore(response string) float64 {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return 0.0
	}

	words := strings.Fields(strings.ToLower(trimmed))
	unique := make(map[string]bool, len(words))
	for _, w := range words {
		unique[w] = true
	}

	// A healthy response has at least half its tokens distinct; below
	// that the score degrades proportionally.
	repetition := 1.0
	if len(words) > 0 {
		ratio := float64(len(unique)) / float64(len(words))
		repetition = clamp01(ratio / 0.5)
	}

	truncation := 1.0
	if looksTruncated(trimmed) {
		truncation = 0.7
	}

	return repetition * truncation
}

// looksTruncated reports whether the text appears cut off mid-thought.
// Short responses are exempt: a one-word answer is terse, not truncated.
func looksTruncated(text string) bool {
	if len(text) < 40 {
		return false
	}
	last := []rune(text)[len([]rune(text))-1]
	switch last {
	case '.', '!', '?', ':', ')', ']', '"', '\'', '`', '…':
		return false
	}
	return unicode.IsLetter(last) || last == ','
}

// tokenSet extracts the distinct lowercase tokens longer than three runes.
func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(w)) > 3 {
			set[w] = true
		}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
