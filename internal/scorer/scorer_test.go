package scorer

import (
	"math"
	"strings"
	"testing"

	"ether/internal/config"
	"ether/internal/types"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := New(config.DefaultScorerConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func goodTurn() types.Turn {
	return types.Turn{
		UserMessage:   "What is the weather in Boston?",
		ModelResponse: "Boston currently has clear skies with a temperature around 18 C. Expect sunshine through the afternoon and a mild evening, perfect for being outside.",
		LatencyMs:     800,
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := newTestScorer(t)
	turn := goodTurn()

	score1, breakdown1 := s.Score(turn)
	score2, breakdown2 := s.Score(turn)

	if score1 != score2 {
		t.Errorf("score not deterministic: %v vs %v", score1, score2)
	}
	for k, v := range breakdown1 {
		if breakdown2[k] != v {
			t.Errorf("breakdown[%s] not deterministic: %v vs %v", k, v, breakdown2[k])
		}
	}
}

func TestScoreEqualsWeightedSum(t *testing.T) {
	s := newTestScorer(t)
	w := config.DefaultScorerConfig().Weights

	turns := []types.Turn{
		goodTurn(),
		{ModelResponse: "ok", LatencyMs: 10},
		{ModelResponse: strings.Repeat("word ", 1000), LatencyMs: 9000},
		{ModelResponse: "", LatencyMs: 0},
	}
	for _, turn := range turns {
		score, breakdown := s.Score(turn)

		sum := w.Length*breakdown[FeatureLength] +
			w.Latency*breakdown[FeatureLatency] +
			w.Enrichment*breakdown[FeatureEnrichment] +
			w.Coherence*breakdown[FeatureCoherence]
		if math.Abs(score-sum) > 1e-9 {
			t.Errorf("score %v != weighted sum %v", score, sum)
		}
		if score < 0 || score > 1 {
			t.Errorf("score %v out of [0,1]", score)
		}
		for k, v := range breakdown {
			if v < 0 || v > 1 {
				t.Errorf("breakdown[%s]=%v out of [0,1]", k, v)
			}
		}
	}
}

func TestLengthScore(t *testing.T) {
	s := newTestScorer(t)
	cfg := config.DefaultScorerConfig()

	tests := []struct {
		name     string
		response string
		want     float64
	}{
		{"empty", "", 0.0},
		{"in band", strings.Repeat("a", cfg.TargetMinChars), 1.0},
		{"at max", strings.Repeat("a", cfg.TargetMaxChars), 1.0},
		{"half of min", strings.Repeat("a", cfg.TargetMinChars/2), 0.5},
		{"double max", strings.Repeat("a", cfg.TargetMaxChars*2), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.lengthScore(tt.response)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("lengthScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLatencyScore(t *testing.T) {
	s := newTestScorer(t)

	if got := s.latencyScore(100); got != 1.0 {
		t.Errorf("fast latency score = %v, want 1.0", got)
	}
	if got := s.latencyScore(2000); got != 1.0 {
		t.Errorf("threshold latency score = %v, want 1.0", got)
	}
	if got := s.latencyScore(4000); got != 0.5 {
		t.Errorf("slow latency score = %v, want 0.5", got)
	}
	if s.latencyScore(8000) >= s.latencyScore(4000) {
		t.Error("latency score must decrease monotonically")
	}
}

func TestEnrichmentScore(t *testing.T) {
	s := newTestScorer(t)
	cfg := config.DefaultScorerConfig()

	// No enrichment at all: fixed neutral score.
	turn := types.Turn{ModelResponse: "hello there"}
	if got := s.enrichmentScore(turn); got != cfg.NoEnrichmentScore {
		t.Errorf("no-enrichment score = %v, want %v", got, cfg.NoEnrichmentScore)
	}

	// Enrichment present and referenced by the response.
	turn = types.Turn{
		UserMessage:     "weather in Boston?",
		EnrichedMessage: "WEATHER INFO:\nTemperature: 18 C\nCondition: sunny skies\nHumidity: 65%",
		ModelResponse:   "It is sunny with a temperature of 18 C and humidity around 65%.",
	}
	if got := s.enrichmentScore(turn); got != 1.0 {
		t.Errorf("utilized enrichment score = %v, want 1.0", got)
	}

	// Enrichment present but ignored.
	turn.ModelResponse = "I cannot help with that request."
	if got := s.enrichmentScore(turn); got != cfg.EnrichmentMissScore {
		t.Errorf("ignored enrichment score = %v, want %v", got, cfg.EnrichmentMissScore)
	}
}

func TestCoherenceScore(t *testing.T) {
	tests := []struct {
		name     string
		response string
		check    func(float64) bool
	}{
		{"empty", "", func(v float64) bool { return v == 0.0 }},
		{"whitespace only", "   \n\t ", func(v float64) bool { return v == 0.0 }},
		{"healthy", "The answer is forty-two, according to the book.", func(v float64) bool { return v == 1.0 }},
		{"repeated token", strings.Repeat("spam ", 50), func(v float64) bool { return v < 0.1 }},
		{"truncated", "The result of the calculation shows that the answer must be approximately", func(v float64) bool { return v < 1.0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coherenceScore(tt.response)
			if !tt.check(got) {
				t.Errorf("coherenceScore(%q) = %v", tt.response, got)
			}
		})
	}
}

func TestInvalidWeightsRejected(t *testing.T) {
	cfg := config.DefaultScorerConfig()
	cfg.Weights.Length = 0.9 // sum now > 1

	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for weights not summing to 1.0")
	}
}
