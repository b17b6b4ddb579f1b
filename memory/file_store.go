package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const sessionsFile = "sessions.json"

// FileStore keeps one JSON document per conversation under Dir,
// plus a sessions.json index of active conversations.
type FileStore struct {
	Dir string

	mu sync.Mutex // guards sessions.json
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." || id+".json" == sessionsFile {
		return "", fmt.Errorf("invalid conversation id %q", id)
	}
	return filepath.Join(s.Dir, id+".json"), nil
}

func (s *FileStore) Load(_ context.Context, id string) (*Conversation, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	return LoadConversation(p)
}

func (s *FileStore) Save(_ context.Context, conv *Conversation) error {
	p, err := s.path(conv.ID)
	if err != nil {
		return err
	}
	return SaveConversation(p, conv)
}

func (s *FileStore) Active(_ context.Context, userKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, err := s.readSessions()
	if err != nil {
		return "", err
	}
	id, ok := sessions[userKey]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *FileStore) SetActive(_ context.Context, userKey, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, err := s.readSessions()
	if err != nil {
		return err
	}
	sessions[userKey] = conversationID
	b, err := json.MarshalIndent(sessions, "", " ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.Dir, sessionsFile), b, 0o644)
}

func (s *FileStore) readSessions() (map[string]string, error) {
	b, err := os.ReadFile(filepath.Join(s.Dir, sessionsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	sessions := map[string]string{}
	if err := json.Unmarshal(b, &sessions); err != nil {
		return nil, fmt.Errorf("parse %s: %w", sessionsFile, err)
	}
	if sessions == nil {
		sessions = map[string]string{}
	}
	return sessions, nil
}
