package memory

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// encodingBase64 tags binary payloads in the wire format.
const encodingBase64 = "base64"

type partJSON struct {
	Type      PartKind       `json:"type"`
	Text      string         `json:"text,omitempty"`
	Thought   bool           `json:"thought,omitempty"`
	MIMEType  string         `json:"mime_type,omitempty"`
	Encoding  string         `json:"encoding,omitempty"`
	Data      string         `json:"data,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	Response  *string        `json:"response,omitempty"`
	Status    Status         `json:"status,omitempty"`
	Signature string         `json:"signature,omitempty"`
}

// MarshalJSON encodes p with an explicit variant tag; binary data is base64.
func (p Part) MarshalJSON() ([]byte, error) {
	w := partJSON{Type: p.Kind()}
	switch w.Type {
	case KindText:
		w.Text = p.Text
		w.Thought = p.Thought
	case KindBinary:
		w.MIMEType = p.Binary.MIMEType
		w.Encoding = encodingBase64
		w.Data = base64.StdEncoding.EncodeToString(p.Binary.Data)
	case KindToolCall:
		w.ID = p.ToolCall.ID
		w.Name = p.ToolCall.Name
		w.Args = p.ToolCall.Args
	case KindToolResult:
		resp := p.ToolResult.Response
		w.ID = p.ToolResult.ID
		w.Name = p.ToolResult.Name
		w.Response = &resp
		w.Status = p.ToolResult.Status
	}
	if len(p.Signature) > 0 {
		w.Signature = base64.StdEncoding.EncodeToString(p.Signature)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the tagged wire form produced by MarshalJSON.
func (p *Part) UnmarshalJSON(b []byte) error {
	var w partJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out := Part{}
	switch w.Type {
	case KindText, "":
		out.Text = w.Text
		out.Thought = w.Thought
	case KindBinary:
		if w.Encoding != "" && w.Encoding != encodingBase64 {
			return fmt.Errorf("inline_binary: unsupported encoding %q", w.Encoding)
		}
		data, err := base64.StdEncoding.DecodeString(w.Data)
		if err != nil {
			return fmt.Errorf("inline_binary: %w", err)
		}
		out.Binary = &Binary{MIMEType: w.MIMEType, Data: data}
	case KindToolCall:
		out.ToolCall = &ToolCall{ID: w.ID, Name: w.Name, Args: w.Args}
	case KindToolResult:
		r := &ToolResult{ID: w.ID, Name: w.Name, Status: w.Status}
		if w.Response != nil {
			r.Response = *w.Response
		}
		out.ToolResult = r
	default:
		return fmt.Errorf("unknown part type %q", w.Type)
	}
	if w.Signature != "" {
		sig, err := base64.StdEncoding.DecodeString(w.Signature)
		if err != nil {
			return fmt.Errorf("signature: %w", err)
		}
		out.Signature = sig
	}
	*p = out
	return nil
}

type messageJSON struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	parts := m.Parts
	if parts == nil {
		parts = []Part{}
	}
	return json.Marshal(messageJSON{Role: m.Role, Parts: parts})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var w messageJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Role != RoleUser && w.Role != RoleModel {
		return fmt.Errorf("unknown role %q", w.Role)
	}
	m.Role = w.Role
	m.Parts = w.Parts
	return nil
}

type conversationJSON struct {
	ChatID    string        `json:"chat_id"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"created_at"`
	Cost      float64       `json:"cost"`
	APICalls  []UsageRecord `json:"api_calls"`
	Messages  []Message     `json:"messages"`
}

func (c Conversation) MarshalJSON() ([]byte, error) {
	w := conversationJSON{
		ChatID:    c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		Cost:      c.Cost,
		APICalls:  c.Usage,
		Messages:  c.Messages,
	}
	if w.APICalls == nil {
		w.APICalls = []UsageRecord{}
	}
	if w.Messages == nil {
		w.Messages = []Message{}
	}
	return json.Marshal(w)
}

func (c *Conversation) UnmarshalJSON(b []byte) error {
	var w conversationJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*c = Conversation{
		ID:        w.ChatID,
		Title:     w.Title,
		CreatedAt: w.CreatedAt,
		Cost:      w.Cost,
		Usage:     w.APICalls,
		Messages:  w.Messages,
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	return nil
}

// Encode serialises conv in the persisted JSON form.
func Encode(conv *Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("encode: nil conversation")
	}
	return json.MarshalIndent(conv, "", " ")
}

// Decode parses the persisted JSON form.
func Decode(b []byte) (*Conversation, error) {
	var conv Conversation
	if err := json.Unmarshal(b, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}
