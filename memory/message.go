package memory

import "strings"

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Status is the outcome of a single tool invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// PartKind names the variant held by a Part.
type PartKind string

const (
	KindText       PartKind = "text"
	KindBinary     PartKind = "inline_binary"
	KindToolCall   PartKind = "tool_call_request"
	KindToolResult PartKind = "tool_call_result"
)

// Binary is an opaque attachment. Encoding is a persistence concern.
type Binary struct {
	MIMEType string
	Data     []byte
}

// ToolCall is a model-issued request to run a tool.
// ID is provider-assigned and may be empty.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult answers exactly one ToolCall, matched by position within a turn.
type ToolResult struct {
	ID       string
	Name     string
	Response string
	Status   Status
}

// Part is one atomic unit of message content. Exactly one of Text, Binary,
// ToolCall or ToolResult is meaningful; Kind reports which.
type Part struct {
	Text       string
	Thought    bool
	Binary     *Binary
	ToolCall   *ToolCall
	ToolResult *ToolResult

	// Signature is an opaque provider token echoed back on the next request.
	Signature []byte
}

// Kind reports the variant carried by p.
func (p Part) Kind() PartKind {
	switch {
	case p.ToolCall != nil:
		return KindToolCall
	case p.ToolResult != nil:
		return KindToolResult
	case p.Binary != nil:
		return KindBinary
	default:
		return KindText
	}
}

func TextPart(s string) Part { return Part{Text: s} }

func BinaryPart(mimeType string, data []byte) Part {
	return Part{Binary: &Binary{MIMEType: mimeType, Data: data}}
}

func ToolCallPart(c ToolCall) Part { return Part{ToolCall: &c} }

func ToolResultPart(r ToolResult) Part { return Part{ToolResult: &r} }

// Message is one turn in a conversation.
type Message struct {
	Role  Role
	Parts []Part
}

// NewUserText returns a USER message holding a single text part.
func NewUserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart(text)}}
}

// NewModelText returns a MODEL message holding a single text part.
func NewModelText(text string) Message {
	return Message{Role: RoleModel, Parts: []Part{TextPart(text)}}
}

// ToolCalls returns the tool-call requests in m, in part order.
func (m Message) ToolCalls() []ToolCall {
	var out []ToolCall
	for _, p := range m.Parts {
		if p.ToolCall != nil {
			out = append(out, *p.ToolCall)
		}
	}
	return out
}

// HasToolCalls reports whether m carries at least one tool-call request.
func (m Message) HasToolCalls() bool {
	for _, p := range m.Parts {
		if p.ToolCall != nil {
			return true
		}
	}
	return false
}

// Text joins the visible (non-thought) text parts of m with newlines.
func (m Message) Text() string {
	var texts []string
	for _, p := range m.Parts {
		if p.Kind() != KindText || p.Thought || p.Text == "" {
			continue
		}
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n")
}
