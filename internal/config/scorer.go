package config

import (
	"fmt"
	"math"
)

// weightSumTolerance is the allowed floating-point slack when checking that
// scorer weights sum to 1.0.
const weightSumTolerance = 1e-6

// ScorerConfig configures the deterministic response quality scorer.
// All values are product-tuning constants; they never depend on external
// state, which keeps scoring replayable.
type ScorerConfig struct {
	Weights ScorerWeights `yaml:"weights"`

	// Response length band (runes). In-band responses score 1.0 on length.
	TargetMinChars int `yaml:"target_min_chars"`
	TargetMaxChars int `yaml:"target_max_chars"`

	// Latency at or below the threshold scores 1.0; above it the score
	// decays monotonically.
	LatencyThresholdMs int64 `yaml:"latency_threshold_ms"`

	// Enrichment utilization scores.
	EnrichmentMissScore float64 `yaml:"enrichment_miss_score"` // enrichment present but unused by response
	NoEnrichmentScore   float64 `yaml:"no_enrichment_score"`   // no enrichment was attached at all

	// Minimum number of distinct enrichment tokens the response must echo
	// to count as having used the enrichment.
	MinOverlapTokens int `yaml:"min_overlap_tokens"`
}

// ScorerWeights are the fixed sub-score weights. They must sum to 1.0.
type ScorerWeights struct {
	Length     float64 `yaml:"length"`
	Latency    float64 `yaml:"latency"`
	Enrichment float64 `yaml:"enrichment"`
	Coherence  float64 `yaml:"coherence"`
}

// Sum returns the total of all weights.
func (w ScorerWeights) Sum() float64 {
	return w.Length + w.Latency + w.Enrichment + w.Coherence
}

// DefaultScorerConfig returns the default scoring constants.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Weights: ScorerWeights{
			Length:     0.30,
			Latency:    0.20,
			Enrichment: 0.20,
			Coherence:  0.30,
		},
		TargetMinChars:      80,
		TargetMaxChars:      2000,
		LatencyThresholdMs:  2000,
		EnrichmentMissScore: 0.4,
		NoEnrichmentScore:   0.5,
		MinOverlapTokens:    2,
	}
}

// Validate fails fast on invalid scoring constants.
func (c ScorerConfig) Validate() error {
	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %v", sum)
	}
	if c.Weights.Length < 0 || c.Weights.Latency < 0 || c.Weights.Enrichment < 0 || c.Weights.Coherence < 0 {
		return fmt.Errorf("weights must be non-negative")
	}
	if c.TargetMinChars <= 0 || c.TargetMaxChars <= c.TargetMinChars {
		return fmt.Errorf("invalid length band [%d, %d]", c.TargetMinChars, c.TargetMaxChars)
	}
	if c.LatencyThresholdMs <= 0 {
		return fmt.Errorf("latency_threshold_ms must be positive, got %d", c.LatencyThresholdMs)
	}
	if c.EnrichmentMissScore < 0 || c.EnrichmentMissScore > 1 {
		return fmt.Errorf("enrichment_miss_score out of [0,1]: %v", c.EnrichmentMissScore)
	}
	if c.NoEnrichmentScore < 0 || c.NoEnrichmentScore > 1 {
		return fmt.Errorf("no_enrichment_score out of [0,1]: %v", c.NoEnrichmentScore)
	}
	if c.MinOverlapTokens <= 0 {
		return fmt.Errorf("min_overlap_tokens must be positive, got %d", c.MinOverlapTokens)
	}
	return nil
}
