package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/petasbytes/snapbooks/internal/usage"
	"github.com/petasbytes/snapbooks/memory"
	"github.com/petasbytes/snapbooks/tools"
)

const DefaultOpenAIModel = shared.ChatModelGPT4_1

// OpenAI calls the Chat Completions API (/v1/chat/completions).
type OpenAI struct {
	cli openai.Client
}

// NewOpenAI creates a client. SDK-level retries are disabled; WithRetry
// owns backoff.
func NewOpenAI(opts ...option.RequestOption) *OpenAI {
	return &OpenAI{cli: openai.NewClient(append([]option.RequestOption{option.WithMaxRetries(0)}, opts...)...)}
}

func (c *OpenAI) CallModel(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	msgs, err := messagesToChatParams(req.System, req.Messages)
	if err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: msgs,
	}
	if len(req.Tools) > 0 {
		if params.Tools, err = descriptorsToChatTools(req.Tools); err != nil {
			return nil, err
		}
	}
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	return fromChatCompletion(resp)
}

func messagesToChatParams(system string, msgs []memory.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for i, m := range msgs {
		if m.Role == memory.RoleModel {
			asst := &openai.ChatCompletionAssistantMessageParam{}
			if text := m.Text(); text != "" {
				asst.Content.OfString = openai.String(text)
			}
			for n, call := range m.ToolCalls() {
				if call.Args == nil {
					call.Args = map[string]any{}
				}
				args, err := json.Marshal(call.Args)
				if err != nil {
					return nil, fmt.Errorf("message %d: encode %s arguments: %w", i, call.Name, err)
				}
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: callID(call.ID, i, n),
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: string(args),
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: asst})
			continue
		}

		var parts []openai.ChatCompletionContentPartUnionParam
		results := 0
		for _, p := range m.Parts {
			switch p.Kind() {
			case memory.KindText:
				if p.Text != "" && !p.Thought {
					parts = append(parts, openai.TextContentPart(p.Text))
				}
			case memory.KindBinary:
				url := "data:" + p.Binary.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Binary.Data)
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
			case memory.KindToolResult:
				out = append(out, openai.ToolMessage(p.ToolResult.Response, callID(p.ToolResult.ID, i-1, results)))
				results++
			}
		}
		if len(parts) > 0 {
			out = append(out, openai.UserMessage(parts))
		}
	}
	return out, nil
}

func descriptorsToChatTools(descs []tools.Descriptor) ([]openai.ChatCompletionToolUnionParam, error) {
	out := make([]openai.ChatCompletionToolUnionParam, len(descs))
	for i, d := range descs {
		params := shared.FunctionParameters{"type": "object", "properties": map[string]any{}}
		if d.Schema != nil {
			b, err := json.Marshal(d.Schema)
			if err != nil {
				return nil, fmt.Errorf("encode %s schema: %w", d.Name, err)
			}
			params = shared.FunctionParameters{}
			if err := json.Unmarshal(b, &params); err != nil {
				return nil, fmt.Errorf("encode %s schema: %w", d.Name, err)
			}
		}
		out[i] = openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        d.Name,
					Description: openai.String(d.Description),
					Parameters:  params,
				},
			},
		}
	}
	return out, nil
}

func fromChatCompletion(resp *openai.ChatCompletion) (*Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}
	msg := resp.Choices[0].Message
	out := memory.Message{Role: memory.RoleModel}
	if msg.Content != "" {
		out.Parts = append(out.Parts, memory.TextPart(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		if tc.Type != "function" {
			continue
		}
		fn := tc.AsFunction()
		var args map[string]any
		if fn.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(fn.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("%w: %s arguments: %v", ErrEmptyResponse, fn.Function.Name, err)
			}
		}
		out.Parts = append(out.Parts, memory.ToolCallPart(memory.ToolCall{ID: fn.ID, Name: fn.Function.Name, Args: args}))
	}
	if len(out.Parts) == 0 {
		return nil, fmt.Errorf("%w: no content", ErrEmptyResponse)
	}

	r := &Response{Message: out}
	if u := resp.Usage; u.TotalTokens > 0 {
		r.Usage = &usage.Raw{
			Prompt:     u.PromptTokens,
			Candidates: u.CompletionTokens - u.CompletionTokensDetails.ReasoningTokens,
			Total:      u.TotalTokens,
			Cached:     u.PromptTokensDetails.CachedTokens,
		}
	}
	return r, nil
}
