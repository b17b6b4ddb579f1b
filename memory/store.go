package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by SessionIndex when a user has no active conversation.
var ErrNotFound = errors.New("not found")

// Store loads and saves conversations. Load returns nil, nil for an unknown id.
type Store interface {
	Load(ctx context.Context, id string) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
}

// SessionIndex tracks the active conversation per external user key.
type SessionIndex interface {
	Active(ctx context.Context, userKey string) (string, error)
	SetActive(ctx context.Context, userKey, conversationID string) error
}

// MemoryStore keeps serialised conversations in process memory.
// It is the fallback when no durable backend is configured.
type MemoryStore struct {
	mu       sync.Mutex
	convs    map[string][]byte
	sessions map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs:    make(map[string][]byte),
		sessions: make(map[string]string),
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	b, ok := s.convs[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return Decode(b)
}

func (s *MemoryStore) Save(_ context.Context, conv *Conversation) error {
	b, err := Encode(conv)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.convs[conv.ID] = b
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Active(_ context.Context, userKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessions[userKey]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *MemoryStore) SetActive(_ context.Context, userKey, conversationID string) error {
	s.mu.Lock()
	s.sessions[userKey] = conversationID
	s.mu.Unlock()
	return nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
