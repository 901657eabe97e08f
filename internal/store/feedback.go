package store

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"ether/internal/types"
)

// InsertFeedback writes a feedback record for an existing turn. It fails
// with ErrUnknownTurn if the turn does not exist and ErrDuplicateFeedback
// if a record is already present; in both cases nothing is written.
// Rating-bound validation happens in the feedback ledger before this call.
func (s *Store) InsertFeedback(ctx context.Context, turnID int64, rating int, comment string) (*types.FeedbackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM turns WHERE id = ?)`, turnID).Scan(&exists); err != nil {
		return nil, storageErr("feedback", err)
	}
	if !exists {
		return nil, ErrUnknownTurn
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM feedback WHERE turn_id = ?)`, turnID).Scan(&exists); err != nil {
		return nil, storageErr("feedback", err)
	}
	if exists {
		return nil, ErrDuplicateFeedback
	}

	rec := types.FeedbackRecord{
		TurnID:      turnID,
		Rating:      rating,
		Comment:     comment,
		SubmittedAt: s.now().UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (turn_id, rating, comment, submitted_at) VALUES (?, ?, ?, ?)`,
		rec.TurnID, rec.Rating, rec.Comment, rec.SubmittedAt)
	if err != nil {
		return nil, storageErr("feedback", err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return nil, storageErr("feedback", err)
	}

	s.log.Debug("feedback recorded",
		zap.Int64("turn", turnID), zap.Int("rating", rating))
	return &rec, nil
}

// FeedbackForTurn returns the feedback record for a turn, or (nil, nil)
// when none exists.
func (s *Store) FeedbackForTurn(ctx context.Context, turnID int64) (*types.FeedbackRecord, error) {
	var rec types.FeedbackRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, turn_id, rating, comment, submitted_at FROM feedback WHERE turn_id = ?`,
		turnID).Scan(&rec.ID, &rec.TurnID, &rec.Rating, &rec.Comment, &rec.SubmittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("feedback", err)
	}
	return &rec, nil
}
