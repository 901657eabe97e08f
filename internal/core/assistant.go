// Package core assembles the conversation engine: enrichment, the model
// call, durable storage with scoring, analytics, and feedback.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ether/internal/analytics"
	"ether/internal/enricher"
	"ether/internal/feedback"
	"ether/internal/model"
	"ether/internal/store"
	"ether/internal/types"
)

// Assistant is the single entry point exposed to the surrounding
// application. Construct one per process via NewAssistant.
type Assistant struct {
	store    *store.Store
	enricher *enricher.Enricher
	reporter *analytics.Reporter
	ledger   *feedback.Ledger
	caller   model.Caller
	log      *zap.Logger
}

// NewAssistant wires the core together. The enricher may be nil, in which
// case messages go to the model unmodified; the caller may not.
func NewAssistant(st *store.Store, en *enricher.Enricher, rep *analytics.Reporter, led *feedback.Ledger, caller model.Caller, log *zap.Logger) (*Assistant, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if rep == nil {
		return nil, fmt.Errorf("analytics reporter is required")
	}
	if led == nil {
		return nil, fmt.Errorf("feedback ledger is required")
	}
	if caller == nil {
		return nil, fmt.Errorf("model caller is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Assistant{
		store:    st,
		enricher: en,
		reporter: rep,
		ledger:   led,
		caller:   caller,
		log:      log,
	}, nil
}

// SubmitMessage runs the full pipeline for one user message: enrich,
// call the model, persist the scored turn. An empty conversationID starts
// a new conversation. Enrichment failures degrade to the plain message;
// a model failure is surfaced and nothing is stored.
func (a *Assistant) SubmitMessage(ctx context.Context, conversationID, userMessage string) (*types.Turn, error) {
	if userMessage == "" {
		return nil, fmt.Errorf("user message is empty")
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	var enriched string
	var sources []types.SourceType
	if a.enricher != nil {
		enriched, sources = a.enricher.Enrich(ctx, userMessage)
	}

	prompt := userMessage
	if enriched != "" {
		prompt = enriched
	}

	start := time.Now()
	response, usage, err := a.caller.Call(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}
	latency := time.Since(start).Milliseconds()

	turn, err := a.store.Append(ctx, types.TurnDraft{
		ConversationID:    conversationID,
		UserMessage:       userMessage,
		EnrichedMessage:   enriched,
		ModelResponse:     response,
		EnrichmentSources: sources,
		LatencyMs:         latency,
		PromptTokens:      usage.PromptTokens,
		ResponseTokens:    usage.ResponseTokens,
	})
	if err != nil {
		return nil, err
	}

	a.log.Info("message processed",
		zap.String("conversation", conversationID),
		zap.Int64("turn", turn.ID),
		zap.Int64("latency_ms", latency),
		zap.Float64("quality", turn.QualityScore),
		zap.Int("sources", len(sources)))
	return turn, nil
}

// GetHistory returns all turns of a conversation in order.
func (a *Assistant) GetHistory(ctx context.Context, conversationID string) ([]types.Turn, error) {
	return a.store.Get(ctx, conversationID)
}

// GetAnalytics aggregates one conversation, or everything when
// conversationID is empty.
func (a *Assistant) GetAnalytics(ctx context.Context, conversationID string) (types.AnalyticsReport, error) {
	return a.reporter.Summarize(ctx, conversationID)
}

// SubmitFeedback records a user rating for a stored turn.
func (a *Assistant) SubmitFeedback(ctx context.Context, turnID int64, rating int, comment string) (*types.FeedbackRecord, error) {
	return a.ledger.Record(ctx, turnID, rating, comment)
}

// PurgeConversation removes a conversation and its feedback.
func (a *Assistant) PurgeConversation(ctx context.Context, conversationID string) error {
	return a.store.Purge(ctx, conversationID)
}
