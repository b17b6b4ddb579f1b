package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists conversations and session pointers in SQLite.
// Conversation bodies are stored in the same JSON form as FileStore.
type SQLiteStore struct {
	db *sql.DB
}

// SQLiteDSN returns a modernc.org/sqlite DSN for path with WAL and a busy timeout.
func SQLiteDSN(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// OpenSQLiteStore opens (or creates) the database at path and migrates the schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open conversation database: %w", err)
	}
	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an existing handle. The caller keeps ownership of db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate conversation schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		cost       REAL NOT NULL DEFAULT 0,
		body       TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sessions (
		user_key        TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Conversation, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM conversations WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}
	conv, err := Decode([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return conv, nil
}

func (s *SQLiteStore) Save(ctx context.Context, conv *Conversation) error {
	body, err := Encode(conv)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at, cost, body)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at,
			cost = excluded.cost,
			body = excluded.body`,
		conv.ID,
		conv.Title,
		conv.CreatedAt.UTC().Format(time.RFC3339Nano),
		now,
		conv.Cost,
		string(body),
	)
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", conv.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Active(ctx context.Context, userKey string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT conversation_id FROM sessions WHERE user_key = ?`, userKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load session %s: %w", userKey, err)
	}
	return id, nil
}

func (s *SQLiteStore) SetActive(ctx context.Context, userKey, conversationID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_key, conversation_id, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_key) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			updated_at = excluded.updated_at`,
		userKey, conversationID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", userKey, err)
	}
	return nil
}
