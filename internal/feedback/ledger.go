// Package feedback implements the append-only ledger of explicit user
// ratings, joined to stored turns by turn ID.
package feedback

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ether/internal/config"
	"ether/internal/store"
	"ether/internal/types"
)

// ErrInvalidRating is returned when a rating falls outside the configured
// bounds. Validation happens before any write is attempted.
var ErrInvalidRating = errors.New("rating outside accepted bounds")

// Referential errors surfaced from the store.
var (
	ErrUnknownTurn       = store.ErrUnknownTurn
	ErrDuplicateFeedback = store.ErrDuplicateFeedback
)

// Ledger validates and records user feedback. Records are immutable once
// written; a resubmission for the same turn is rejected, not overwritten.
type Ledger struct {
	store *store.Store
	min   int
	max   int
	log   *zap.Logger
}

// NewLedger creates a ledger over the given store with the configured
// rating bounds.
func NewLedger(st *store.Store, cfg config.FeedbackConfig, log *zap.Logger) (*Ledger, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.MinRating >= cfg.MaxRating {
		return nil, fmt.Errorf("invalid rating bounds [%d, %d]", cfg.MinRating, cfg.MaxRating)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: st, min: cfg.MinRating, max: cfg.MaxRating, log: log}, nil
}

// Record stores a rating for a turn. It fails with ErrInvalidRating,
// ErrUnknownTurn, or ErrDuplicateFeedback; no partial write happens on any
// failure.
func (l *Ledger) Record(ctx context.Context, turnID int64, rating int, comment string) (*types.FeedbackRecord, error) {
	if rating < l.min || rating > l.max {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidRating, rating, l.min, l.max)
	}

	rec, err := l.store.InsertFeedback(ctx, turnID, rating, comment)
	if err != nil {
		return nil, err
	}

	l.log.Info("feedback received",
		zap.Int64("turn", turnID), zap.Int("rating", rating))
	return rec, nil
}

// ForTurn returns the feedback record for a turn, or (nil, nil) when none
// has been submitted.
func (l *Ledger) ForTurn(ctx context.Context, turnID int64) (*types.FeedbackRecord, error) {
	return l.store.FeedbackForTurn(ctx, turnID)
}
