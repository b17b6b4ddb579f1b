package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/petasbytes/snapbooks/internal/schema"
	"github.com/petasbytes/snapbooks/internal/usage"
	"github.com/petasbytes/snapbooks/memory"
	"github.com/petasbytes/snapbooks/tools"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-3-flash-preview"

// GeminiConfig configures the Gemini Developer API client.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Gemini calls the Gemini API through google.golang.org/genai.
type Gemini struct {
	client *genai.Client
}

// NewGemini builds a client. An empty APIKey falls back to GEMINI_API_KEY
// or GOOGLE_API_KEY in the environment.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, geminiClientConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

func geminiClientConfig(cfg GeminiConfig) *genai.ClientConfig {
	return &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	}
}

func (g *Gemini) CallModel(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	contents, err := geminiContents(req.Messages)
	if err != nil {
		return nil, err
	}
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, d := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  GeminiSchema(d.Schema),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	return geminiResponse(resp)
}

func geminiResponse(resp *genai.GenerateContentResponse) (*Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrEmptyResponse)
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no content", ErrEmptyResponse)
	}

	msg := memory.Message{Role: memory.RoleModel}
	for _, p := range content.Parts {
		if p == nil {
			continue
		}
		switch {
		case p.FunctionCall != nil:
			part := memory.ToolCallPart(memory.ToolCall{
				ID:   p.FunctionCall.ID,
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			})
			part.Signature = p.ThoughtSignature
			msg.Parts = append(msg.Parts, part)
		case p.InlineData != nil:
			part := memory.BinaryPart(p.InlineData.MIMEType, p.InlineData.Data)
			part.Signature = p.ThoughtSignature
			msg.Parts = append(msg.Parts, part)
		case p.Text != "" || p.Thought || len(p.ThoughtSignature) > 0:
			msg.Parts = append(msg.Parts, memory.Part{Text: p.Text, Thought: p.Thought, Signature: p.ThoughtSignature})
		}
	}
	if len(msg.Parts) == 0 {
		return nil, fmt.Errorf("%w: no usable parts", ErrEmptyResponse)
	}

	out := &Response{Message: msg}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &usage.Raw{
			Prompt:     int64(u.PromptTokenCount),
			Candidates: int64(u.CandidatesTokenCount),
			Total:      int64(u.TotalTokenCount),
			Cached:     int64(u.CachedContentTokenCount),
		}
	}
	return out, nil
}

func geminiContents(msgs []memory.Message) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(msgs))
	for i, m := range msgs {
		c := &genai.Content{Role: genai.RoleUser}
		if m.Role == memory.RoleModel {
			c.Role = genai.RoleModel
		}
		for _, p := range m.Parts {
			gp := &genai.Part{ThoughtSignature: p.Signature}
			switch p.Kind() {
			case memory.KindText:
				gp.Text = p.Text
				gp.Thought = p.Thought
			case memory.KindBinary:
				gp.InlineData = &genai.Blob{MIMEType: p.Binary.MIMEType, Data: p.Binary.Data}
			case memory.KindToolCall:
				gp.FunctionCall = &genai.FunctionCall{ID: p.ToolCall.ID, Name: p.ToolCall.Name, Args: p.ToolCall.Args}
			case memory.KindToolResult:
				gp.FunctionResponse = &genai.FunctionResponse{
					ID:       p.ToolResult.ID,
					Name:     p.ToolResult.Name,
					Response: map[string]any{"content": p.ToolResult.Response},
				}
			default:
				return nil, fmt.Errorf("message %d: unsupported part %s", i, p.Kind())
			}
			c.Parts = append(c.Parts, gp)
		}
		out = append(out, c)
	}
	return out, nil
}

// GeminiSchema converts a resolved JSON schema into the OpenAPI subset
// Gemini accepts. A nil schema yields nil (no parameters).
func GeminiSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        geminiType(s.Type),
		Description: s.Description,
		Format:      s.Format,
		Pattern:     s.Pattern,
		Default:     s.Default,
		Required:    s.Required,
		MinItems:    intPtr(s.MinItems),
		MaxItems:    intPtr(s.MaxItems),
		MinLength:   intPtr(s.MinLength),
		MaxLength:   intPtr(s.MaxLength),
		Minimum:     numberPtr(s.Minimum),
		Maximum:     numberPtr(s.Maximum),
	}
	if schema.IsNullable(s) {
		t := true
		out.Nullable = &t
	}
	for _, e := range s.Enum {
		out.Enum = append(out.Enum, fmt.Sprint(e))
	}
	if s.Items != nil {
		out.Items = GeminiSchema(s.Items)
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		out.Properties = make(map[string]*genai.Schema, s.Properties.Len())
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			out.Properties[pair.Key] = GeminiSchema(pair.Value)
			out.PropertyOrdering = append(out.PropertyOrdering, pair.Key)
		}
	}
	for _, alt := range append(append([]*jsonschema.Schema{}, s.AnyOf...), s.OneOf...) {
		out.AnyOf = append(out.AnyOf, GeminiSchema(alt))
	}
	return out
}

func geminiType(t string) genai.Type {
	switch t {
	case "":
		return ""
	case "null":
		return genai.TypeNULL
	default:
		return genai.Type(strings.ToUpper(t))
	}
}

func intPtr(v *uint64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func numberPtr(n json.Number) *float64 {
	if n == "" {
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil
	}
	return &f
}

var (
	_ Model          = (*Gemini)(nil)
	_ tools.Searcher = (*GeminiSearcher)(nil)
)
