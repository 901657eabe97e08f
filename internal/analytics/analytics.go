// Package analytics aggregates stored turns into on-demand reports.
//
// Reports are recomputed from a single store read each call; there is no
// caching layer here. Because one snapshot backs one report, the numbers
// inside a report are always mutually consistent, though a report may lag
// a write that lands between the read and the caller seeing the result.
package analytics

import (
	"context"
	"sort"

	"ether/internal/store"
	"ether/internal/types"
)

// Reporter computes analytics over the turn log.
type Reporter struct {
	store *store.Store
}

// NewReporter creates a reporter over the given store.
func NewReporter(st *store.Store) *Reporter {
	return &Reporter{store: st}
}

// Summarize aggregates the turns of one conversation, or all turns when
// conversationID is empty. With no turns it returns a zero-valued report;
// no aggregate ever divides by zero.
func (r *Reporter) Summarize(ctx context.Context, conversationID string) (types.AnalyticsReport, error) {
	var turns []types.Turn
	var err error
	if conversationID == "" {
		turns, err = r.store.GetAll(ctx)
	} else {
		turns, err = r.store.Get(ctx, conversationID)
	}
	if err != nil {
		return types.AnalyticsReport{}, err
	}
	return Compute(conversationID, turns), nil
}

// Compute builds a report from an already-loaded snapshot of turns. Pure;
// exported so callers holding turns can aggregate without a second read.
func Compute(conversationID string, turns []types.Turn) types.AnalyticsReport {
	report := types.AnalyticsReport{
		ConversationID: conversationID,
		TurnCount:      len(turns),
		SourceUsage:    make(map[types.SourceType]int),
	}
	if len(turns) == 0 {
		return report
	}

	scores := make([]float64, 0, len(turns))
	var qualitySum, latencySum float64
	var enriched int
	for _, t := range turns {
		scores = append(scores, t.QualityScore)
		qualitySum += t.QualityScore
		latencySum += float64(t.LatencyMs)
		if t.LatencyMs > report.MaxLatencyMs {
			report.MaxLatencyMs = t.LatencyMs
		}
		report.TotalPromptTokens += int64(t.PromptTokens)
		report.TotalResponseTokens += int64(t.ResponseTokens)
		if len(t.EnrichmentSources) > 0 {
			enriched++
		}
		for _, src := range t.EnrichmentSources {
			report.SourceUsage[src]++
		}
	}

	n := float64(len(turns))
	report.MeanQuality = qualitySum / n
	report.MedianQuality = median(scores)
	report.MeanLatencyMs = latencySum / n
	report.TotalTokens = report.TotalPromptTokens + report.TotalResponseTokens
	report.EnrichmentRate = float64(enriched) / n
	return report
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
