package types

import "time"

// SourceType identifies one of the closed set of external context sources.
// New sources are deliberate, enumerated additions, not plugins.
type SourceType string

const (
	SourceWeb     SourceType = "web"
	SourceWeather SourceType = "weather"
	SourceNews    SourceType = "news"
)

// AllSources lists the known sources in their canonical order. Enrichment
// sources on a stored turn always appear in this order.
var AllSources = []SourceType{SourceWeb, SourceWeather, SourceNews}

// Valid reports whether s is one of the enumerated source types.
func (s SourceType) Valid() bool {
	switch s {
	case SourceWeb, SourceWeather, SourceNews:
		return true
	}
	return false
}

// TurnDraft carries the caller-supplied fields of a turn before the store
// assigns an ID, a timestamp, and a quality score.
type TurnDraft struct {
	ConversationID    string
	UserMessage       string
	EnrichedMessage   string // empty when no enrichment was applied
	ModelResponse     string
	EnrichmentSources []SourceType
	LatencyMs         int64
	PromptTokens      int
	ResponseTokens    int
}

// Turn is one user-message/model-response exchange, the atomic unit of
// stored history. Immutable once persisted.
type Turn struct {
	ID                int64
	ConversationID    string
	Timestamp         time.Time
	UserMessage       string
	EnrichedMessage   string // empty when no enrichment was applied
	ModelResponse     string
	EnrichmentSources []SourceType
	LatencyMs         int64
	PromptTokens      int
	ResponseTokens    int
	QualityScore      float64
	QualityBreakdown  map[string]float64
}

// Enriched reports whether external context was attached to this turn.
func (t *Turn) Enriched() bool {
	return t.EnrichedMessage != ""
}

// FeedbackRecord is an explicit user judgment on a stored turn.
// Immutable once written; at most one record exists per turn.
type FeedbackRecord struct {
	ID          int64
	TurnID      int64
	Rating      int
	Comment     string
	SubmittedAt time.Time
}

// AnalyticsReport aggregates stored turns for one conversation, or globally
// when ConversationID is empty. Zero-valued when no turns exist.
type AnalyticsReport struct {
	ConversationID      string
	TurnCount           int
	MeanQuality         float64
	MedianQuality       float64
	MeanLatencyMs       float64
	MaxLatencyMs        int64
	TotalPromptTokens   int64
	TotalResponseTokens int64
	TotalTokens         int64
	EnrichmentRate      float64
	SourceUsage         map[SourceType]int
}
