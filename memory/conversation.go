package memory

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is used for conversations that have not been named.
const DefaultTitle = "Untitled"

// UsageRecord is the immutable per-call accounting snapshot.
type UsageRecord struct {
	Call            int       `json:"call"`
	Model           string    `json:"model,omitempty"`
	InputTokens     int64     `json:"input_tokens"`
	CachedTokens    int64     `json:"cached_tokens"`
	ThinkingTokens  int64     `json:"thinking_tokens"`
	OutputTokens    int64     `json:"output_tokens"`
	Cost            float64   `json:"cost"`
	ThinkingClamped bool      `json:"thinking_clamped,omitempty"`
	At              time.Time `json:"at,omitempty"`
}

// Conversation is the aggregate root persisted between runs.
// Messages are append-only while a loop runs against it.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Messages  []Message
	Cost      float64
	Usage     []UsageRecord
}

// NewConversation returns an empty conversation stamped with the current time.
func NewConversation(id string) *Conversation {
	return &Conversation{
		ID:        id,
		Title:     DefaultTitle,
		CreatedAt: time.Now().UTC(),
	}
}

// NewConversationID returns a short random identifier.
func NewConversationID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// Append adds messages to the end of the transcript.
func (c *Conversation) Append(msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
}

// Last returns the newest message, if any.
func (c *Conversation) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Settled reports whether the newest message is a final model answer.
func (c *Conversation) Settled() bool {
	last, ok := c.Last()
	return ok && last.Role == RoleModel && !last.HasToolCalls()
}

// LoadConversation reads a conversation from a JSON file.
// A missing file yields nil, nil.
func LoadConversation(path string) (*Conversation, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return Decode(b)
}

// SaveConversation writes conv to path, replacing any previous content atomically.
func SaveConversation(path string, conv *Conversation) error {
	b, err := Encode(conv)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, b, 0o644)
}
