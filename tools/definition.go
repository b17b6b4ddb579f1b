package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	gschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/invopop/jsonschema"
)

// Handler runs a tool with the raw JSON arguments the model sent.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// ToolDefinition binds a tool name to its description, input schema and handler.
// A nil InputSchema marks a tool that takes no input.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Function    Handler
}

// ArgumentError reports arguments that failed validation or decoding.
type ArgumentError struct {
	Err error
}

func (e *ArgumentError) Error() string { return e.Err.Error() }
func (e *ArgumentError) Unwrap() error { return e.Err }

// GenerateSchema reflects T into a JSON Schema whose top level is T itself.
// Nested struct types stay $defs references (T's own definition included, for
// self-references); the registry resolves them before advertising.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
	}
	var v T
	s := reflector.Reflect(v)
	if name, ok := strings.CutPrefix(s.Ref, "#/$defs/"); ok {
		if def, ok := s.Definitions[name]; ok {
			root := *def
			root.Version, root.ID, root.Definitions = s.Version, s.ID, s.Definitions
			s = &root
		}
	}
	return s
}

// Define builds a tool whose arguments are validated against T's schema and
// decoded into T before fn runs.
func Define[T any](name, description string, fn func(context.Context, T) (string, error)) ToolDefinition {
	schema := GenerateSchema[T]()
	validator := sync.OnceValues(func() (*gschema.Resolved, error) {
		return compileValidator(schema)
	})
	return ToolDefinition{
		Name:        name,
		Description: description,
		InputSchema: schema,
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			rs, err := validator()
			if err != nil {
				return "", fmt.Errorf("compile schema: %w", err)
			}
			in, err := bind[T](input, schema, rs)
			if err != nil {
				return "", err
			}
			return fn(ctx, in)
		},
	}
}

// DefineNoInput builds a tool that ignores whatever arguments the model sends.
func DefineNoInput(name, description string, fn func(context.Context) (string, error)) ToolDefinition {
	return ToolDefinition{
		Name:        name,
		Description: description,
		Function: func(ctx context.Context, _ json.RawMessage) (string, error) {
			return fn(ctx)
		},
	}
}

func compileValidator(s *jsonschema.Schema) (*gschema.Resolved, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var gs gschema.Schema
	if err := json.Unmarshal(b, &gs); err != nil {
		return nil, err
	}
	return gs.Resolve(nil)
}

func bind[T any](input json.RawMessage, s *jsonschema.Schema, rs *gschema.Resolved) (T, error) {
	var in T
	input = unwrapRequest(input, s)

	var instance any
	if err := json.Unmarshal(input, &instance); err != nil {
		return in, &ArgumentError{Err: fmt.Errorf("arguments are not valid JSON: %w", err)}
	}
	if err := rs.Validate(instance); err != nil {
		return in, &ArgumentError{Err: err}
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return in, &ArgumentError{Err: err}
	}
	return in, nil
}

// unwrapRequest accepts arguments nested under a single "request" key, which
// some models produce for single-parameter tools. Empty input becomes {}.
func unwrapRequest(input json.RawMessage, s *jsonschema.Schema) json.RawMessage {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	if s != nil && s.Properties != nil {
		if _, ok := s.Properties.Get("request"); ok {
			return trimmed
		}
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed
	}
	inner, ok := env["request"]
	if !ok {
		return trimmed
	}
	if inner = bytes.TrimSpace(inner); len(inner) > 0 && inner[0] == '{' {
		return inner
	}
	return trimmed
}
