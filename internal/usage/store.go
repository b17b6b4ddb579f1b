package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/petasbytes/snapbooks/memory"
	_ "modernc.org/sqlite"
)

// Summary holds aggregated token usage and cost totals.
type Summary struct {
	TotalRecords        int
	TotalInputTokens    int64
	TotalCachedTokens   int64
	TotalThinkingTokens int64
	TotalOutputTokens   int64
	TotalCostUSD        float64
	ClampedRecords      int
}

// Store is an append-only SQLite ledger of usage records.
type Store struct {
	db *sql.DB
}

// OpenStore creates a usage ledger at dbPath. The schema is created on
// first use.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", memory.SQLiteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open usage database: %w", err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing handle, which may be shared with other stores.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate usage schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_records (
		id               TEXT PRIMARY KEY,
		timestamp        TEXT NOT NULL,
		conversation_id  TEXT NOT NULL,
		call             INTEGER NOT NULL,
		model            TEXT NOT NULL,
		input_tokens     INTEGER NOT NULL,
		cached_tokens    INTEGER NOT NULL,
		thinking_tokens  INTEGER NOT NULL,
		output_tokens    INTEGER NOT NULL,
		cost_usd         REAL NOT NULL,
		thinking_clamped INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_usage_conversation ON usage_records(conversation_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends rec under conversationID.
func (s *Store) Record(ctx context.Context, conversationID string, rec memory.UsageRecord) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate usage record ID: %w", err)
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO usage_records
			(id, timestamp, conversation_id, call, model, input_tokens, cached_tokens,
			 thinking_tokens, output_tokens, cost_usd, thinking_clamped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(),
		at.UTC().Format(time.RFC3339),
		conversationID,
		rec.Call,
		rec.Model,
		rec.InputTokens,
		rec.CachedTokens,
		rec.ThinkingTokens,
		rec.OutputTokens,
		rec.Cost,
		rec.ThinkingClamped,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

const summaryColumns = `COUNT(*),
	COALESCE(SUM(input_tokens), 0), COALESCE(SUM(cached_tokens), 0),
	COALESCE(SUM(thinking_tokens), 0), COALESCE(SUM(output_tokens), 0),
	COALESCE(SUM(cost_usd), 0), COALESCE(SUM(thinking_clamped), 0)`

// Summary returns totals for one conversation, or for the whole ledger
// when conversationID is empty.
func (s *Store) Summary(ctx context.Context, conversationID string) (*Summary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+summaryColumns+`
		 FROM usage_records
		 WHERE ? = '' OR conversation_id = ?`,
		conversationID, conversationID,
	)
	var sum Summary
	if err := row.Scan(sum.dest()...); err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	return &sum, nil
}

// SummaryByModel returns per-model totals, optionally for one conversation.
func (s *Store) SummaryByModel(ctx context.Context, conversationID string) (map[string]*Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, `+summaryColumns+`
		 FROM usage_records
		 WHERE ? = '' OR conversation_id = ?
		 GROUP BY model
		 ORDER BY SUM(cost_usd) DESC`,
		conversationID, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage by model: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*Summary)
	for rows.Next() {
		var model string
		var sum Summary
		if err := rows.Scan(append([]any{&model}, sum.dest()...)...); err != nil {
			return nil, fmt.Errorf("scan usage by model: %w", err)
		}
		result[model] = &sum
	}
	return result, rows.Err()
}

func (s *Summary) dest() []any {
	return []any{
		&s.TotalRecords,
		&s.TotalInputTokens, &s.TotalCachedTokens,
		&s.TotalThinkingTokens, &s.TotalOutputTokens,
		&s.TotalCostUSD, &s.ClampedRecords,
	}
}
