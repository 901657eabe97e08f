// Package store implements the durable, ordered log of conversation turns
// and their feedback records, backed by SQLite.
//
// Every successful Append is durable before it returns; a subsequent Get in
// the same process observes it. Turn IDs are assigned by the database and
// are strictly increasing, so ID order equals insertion order equals
// timestamp order within a conversation.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"ether/internal/scorer"
	"ether/internal/types"
)

// Sentinel errors for feedback writes. The ledger validates ratings before
// calling in, so the store only reports referential problems.
var (
	ErrUnknownTurn       = errors.New("unknown turn")
	ErrDuplicateFeedback = errors.New("feedback already recorded for turn")
)

// StorageError wraps a failure of the underlying persistence medium. The
// caller must not assume the write happened.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Store persists turns and feedback in a single SQLite database.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	scorer *scorer.Scorer
	log    *zap.Logger
	dbPath string
	now    func() time.Time
}

// Open initializes the SQLite database at the given path, creating parent
// directories as needed. Use ":memory:" for tests.
func Open(path string, sc *scorer.Scorer, log *zap.Logger) (*Store, error) {
	if sc == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		db:     db,
		scorer: sc,
		log:    log,
		dbPath: path,
		now:    time.Now,
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	turnsTable := `
	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		user_message TEXT NOT NULL,
		enriched_message TEXT NOT NULL DEFAULT '',
		model_response TEXT NOT NULL,
		enrichment_sources TEXT NOT NULL DEFAULT '',
		latency_ms INTEGER NOT NULL DEFAULT 0,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		response_tokens INTEGER NOT NULL DEFAULT 0,
		quality_score REAL NOT NULL DEFAULT 0,
		quality_breakdown TEXT NOT NULL DEFAULT '{}'
	);
	CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id);
	`

	feedbackTable := `
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		turn_id INTEGER NOT NULL UNIQUE,
		rating INTEGER NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (turn_id) REFERENCES turns(id)
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_turn ON feedback(turn_id);
	`

	for _, stmt := range []string{turnsTable, feedbackTable} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append persists a new turn. It assigns the ID and timestamp, invokes the
// scorer synchronously, and returns the fully populated turn. Appends are
// serialized so turns never interleave out of order.
func (s *Store) Append(ctx context.Context, draft types.TurnDraft) (*types.Turn, error) {
	if draft.ConversationID == "" {
		return nil, fmt.Errorf("conversation id is required")
	}
	if draft.LatencyMs < 0 || draft.PromptTokens < 0 || draft.ResponseTokens < 0 {
		return nil, fmt.Errorf("latency and token counts must be non-negative")
	}
	for _, src := range draft.EnrichmentSources {
		if !src.Valid() {
			return nil, fmt.Errorf("unknown enrichment source %q", src)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turn := types.Turn{
		ConversationID:    draft.ConversationID,
		Timestamp:         s.now().UTC(),
		UserMessage:       draft.UserMessage,
		EnrichedMessage:   draft.EnrichedMessage,
		ModelResponse:     draft.ModelResponse,
		EnrichmentSources: draft.EnrichmentSources,
		LatencyMs:         draft.LatencyMs,
		PromptTokens:      draft.PromptTokens,
		ResponseTokens:    draft.ResponseTokens,
	}
	turn.QualityScore, turn.QualityBreakdown = s.scorer.Score(turn)

	breakdownJSON, err := json.Marshal(turn.QualityBreakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quality breakdown: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (conversation_id, created_at, user_message, enriched_message,
		                    model_response, enrichment_sources, latency_ms,
		                    prompt_tokens, response_tokens, quality_score, quality_breakdown)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ConversationID, turn.Timestamp, turn.UserMessage, turn.EnrichedMessage,
		turn.ModelResponse, joinSources(turn.EnrichmentSources), turn.LatencyMs,
		turn.PromptTokens, turn.ResponseTokens, turn.QualityScore, string(breakdownJSON),
	)
	if err != nil {
		s.log.Error("failed to append turn",
			zap.String("conversation", turn.ConversationID), zap.Error(err))
		return nil, storageErr("append", err)
	}

	turn.ID, err = res.LastInsertId()
	if err != nil {
		return nil, storageErr("append", err)
	}

	s.log.Debug("turn appended",
		zap.Int64("turn", turn.ID),
		zap.String("conversation", turn.ConversationID),
		zap.Float64("quality", turn.QualityScore))
	return &turn, nil
}

// Get returns all turns of a conversation in ID order. An unknown
// conversation yields an empty slice, not an error.
func (s *Store) Get(ctx context.Context, conversationID string) ([]types.Turn, error) {
	return s.query(ctx,
		`SELECT id, conversation_id, created_at, user_message, enriched_message,
		        model_response, enrichment_sources, latency_ms,
		        prompt_tokens, response_tokens, quality_score, quality_breakdown
		 FROM turns WHERE conversation_id = ? ORDER BY id ASC`,
		conversationID)
}

// GetAll returns every stored turn in ID order, across conversations.
func (s *Store) GetAll(ctx context.Context) ([]types.Turn, error) {
	return s.query(ctx,
		`SELECT id, conversation_id, created_at, user_message, enriched_message,
		        model_response, enrichment_sources, latency_ms,
		        prompt_tokens, response_tokens, quality_score, quality_breakdown
		 FROM turns ORDER BY id ASC`)
}

func (s *Store) query(ctx context.Context, q string, args ...interface{}) ([]types.Turn, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr("get", err)
	}
	defer rows.Close()

	turns := []types.Turn{}
	for rows.Next() {
		var t types.Turn
		var sources, breakdown string
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Timestamp, &t.UserMessage,
			&t.EnrichedMessage, &t.ModelResponse, &sources, &t.LatencyMs,
			&t.PromptTokens, &t.ResponseTokens, &t.QualityScore, &breakdown); err != nil {
			return nil, storageErr("get", err)
		}
		t.EnrichmentSources = splitSources(sources)
		if err := json.Unmarshal([]byte(breakdown), &t.QualityBreakdown); err != nil {
			return nil, storageErr("get", fmt.Errorf("corrupt quality breakdown for turn %d: %w", t.ID, err))
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("get", err)
	}
	return turns, nil
}

// GetTurn returns a single turn by ID, or (nil, nil) if it does not exist.
func (s *Store) GetTurn(ctx context.Context, turnID int64) (*types.Turn, error) {
	turns, err := s.query(ctx,
		`SELECT id, conversation_id, created_at, user_message, enriched_message,
		        model_response, enrichment_sources, latency_ms,
		        prompt_tokens, response_tokens, quality_score, quality_breakdown
		 FROM turns WHERE id = ?`, turnID)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, nil
	}
	return &turns[0], nil
}

// Purge removes all turns of a conversation and their feedback records.
// Idempotent: purging an unknown conversation succeeds.
func (s *Store) Purge(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("purge", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM feedback WHERE turn_id IN (SELECT id FROM turns WHERE conversation_id = ?)`,
		conversationID); err != nil {
		return storageErr("purge", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM turns WHERE conversation_id = ?`, conversationID); err != nil {
		return storageErr("purge", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("purge", err)
	}

	s.log.Info("conversation purged", zap.String("conversation", conversationID))
	return nil
}

func joinSources(sources []types.SourceType) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func splitSources(joined string) []types.SourceType {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	sources := make([]types.SourceType, len(parts))
	for i, p := range parts {
		sources[i] = types.SourceType(p)
	}
	return sources
}
