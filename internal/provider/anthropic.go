package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/petasbytes/snapbooks/internal/usage"
	"github.com/petasbytes/snapbooks/memory"
	"github.com/petasbytes/snapbooks/tools"
)

const DefaultAnthropicModel = anthropic.ModelClaudeSonnet4_5
const APIVersion = "2023-06-01"

// DefaultMaxTokens caps a single Anthropic reply.
const DefaultMaxTokens = 4096

// NewAnthropicClient returns a client using the API key from opts or the env.
// SDK-level retries are disabled; WithRetry owns backoff.
func NewAnthropicClient(opts ...option.RequestOption) *anthropic.Client {
	c := anthropic.NewClient(append([]option.RequestOption{option.WithMaxRetries(0)}, opts...)...)
	return &c
}

// Anthropic calls the Messages API.
type Anthropic struct {
	Client    *anthropic.Client
	MaxTokens int64
}

func (a *Anthropic) CallModel(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = string(DefaultAnthropicModel)
	}
	maxTokens := a.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	msgs, err := anthropicMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
		Tools:     anthropicTools(req.Tools),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := a.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}
	return anthropicResponse(msg)
}

func anthropicTools(descs []tools.Descriptor) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(descs))
	for _, d := range descs {
		in := anthropic.ToolInputSchemaParam{Properties: map[string]any{}}
		if d.Schema != nil {
			if d.Schema.Properties != nil {
				in.Properties = d.Schema.Properties
			}
			in.Required = d.Schema.Required
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: in,
		}})
	}
	return out
}

func anthropicMessages(msgs []memory.Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for i, m := range msgs {
		var blocks []anthropic.ContentBlockParamUnion
		calls, results := 0, 0
		for _, p := range m.Parts {
			switch p.Kind() {
			case memory.KindText:
				if p.Thought {
					// Thinking is only replayable with its signature.
					if len(p.Signature) > 0 {
						blocks = append(blocks, anthropic.NewThinkingBlock(string(p.Signature), p.Text))
					}
					continue
				}
				if p.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(p.Text))
				}
			case memory.KindBinary:
				data := base64.StdEncoding.EncodeToString(p.Binary.Data)
				switch {
				case p.Binary.MIMEType == "application/pdf":
					blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: data}))
				case strings.HasPrefix(p.Binary.MIMEType, "image/"):
					blocks = append(blocks, anthropic.NewImageBlockBase64(p.Binary.MIMEType, data))
				default:
					return nil, fmt.Errorf("message %d: unsupported attachment type %q", i, p.Binary.MIMEType)
				}
			case memory.KindToolCall:
				args := p.ToolCall.Args
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(callID(p.ToolCall.ID, i, calls), args, p.ToolCall.Name))
				calls++
			case memory.KindToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(
					callID(p.ToolResult.ID, i-1, results),
					p.ToolResult.Response,
					p.ToolResult.Status == memory.StatusError,
				))
				results++
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if m.Role == memory.RoleModel {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out, nil
}

// callID returns id, or a deterministic stand-in for transcripts written by
// providers that do not assign call ids. The n-th result of message i
// pairs with the n-th call of message i-1.
func callID(id string, msg, n int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("toolu_%d_%d", msg, n)
}

func anthropicResponse(msg *anthropic.Message) (*Response, error) {
	if msg == nil || len(msg.Content) == 0 {
		return nil, fmt.Errorf("%w: no content", ErrEmptyResponse)
	}
	out := memory.Message{Role: memory.RoleModel}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Parts = append(out.Parts, memory.TextPart(v.Text))
		case anthropic.ThinkingBlock:
			out.Parts = append(out.Parts, memory.Part{Text: v.Thinking, Thought: true, Signature: []byte(v.Signature)})
		case anthropic.ToolUseBlock:
			var args map[string]any
			if len(v.Input) > 0 {
				if err := json.Unmarshal(v.Input, &args); err != nil {
					return nil, fmt.Errorf("%w: tool_use %s input: %v", ErrEmptyResponse, v.Name, err)
				}
			}
			id := v.ID
			if id == "" {
				id = "toolu_" + uuid.NewString()
			}
			out.Parts = append(out.Parts, memory.ToolCallPart(memory.ToolCall{ID: id, Name: v.Name, Args: args}))
		}
	}
	if len(out.Parts) == 0 {
		return nil, fmt.Errorf("%w: no usable blocks", ErrEmptyResponse)
	}
	u := msg.Usage
	// Cache writes are billed as input.
	prompt := u.InputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
	return &Response{
		Message: out,
		Usage: &usage.Raw{
			Prompt:     prompt,
			Candidates: u.OutputTokens,
			Total:      prompt + u.OutputTokens,
			Cached:     u.CacheReadInputTokens,
		},
	}, nil
}
