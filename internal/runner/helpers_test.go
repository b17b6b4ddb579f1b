package runner_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/petasbytes/snapbooks/internal/provider"
	"github.com/petasbytes/snapbooks/internal/runner"
	"github.com/petasbytes/snapbooks/internal/usage"
	"github.com/petasbytes/snapbooks/memory"
	"github.com/petasbytes/snapbooks/tools"
)

type step func(req provider.Request) (*provider.Response, error)

// scripted replays steps in order; the last step repeats once the script runs out.
type scripted struct {
	mu      sync.Mutex
	steps   []step
	calls   int
	seenLen []int
}

func (s *scripted) CallModel(_ context.Context, req provider.Request) (*provider.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	s.seenLen = append(s.seenLen, len(req.Messages))
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i](req)
}

func (s *scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func reply(parts ...memory.Part) step {
	return func(provider.Request) (*provider.Response, error) {
		return &provider.Response{Message: memory.Message{Role: memory.RoleModel, Parts: parts}}, nil
	}
}

func replyWithUsage(raw usage.Raw, parts ...memory.Part) step {
	return func(provider.Request) (*provider.Response, error) {
		u := raw
		return &provider.Response{Message: memory.Message{Role: memory.RoleModel, Parts: parts}, Usage: &u}, nil
	}
}

func fail(err error) step {
	return func(provider.Request) (*provider.Response, error) { return nil, err }
}

func call(id, name string, args map[string]any) memory.Part {
	return memory.ToolCallPart(memory.ToolCall{ID: id, Name: name, Args: args})
}

var errTransport = errors.New("connection reset by peer")

type echoInput struct {
	Text string `json:"text"`
}

type sleepInput struct {
	Millis int    `json:"millis"`
	Tag    string `json:"tag"`
}

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r, err := tools.NewRegistry(
		tools.Define("echo", "Echo text back.", func(_ context.Context, in echoInput) (string, error) {
			return "echo: " + in.Text, nil
		}),
		tools.Define("sleep", "Sleep then return the tag.", func(ctx context.Context, in sleepInput) (string, error) {
			select {
			case <-time.After(time.Duration(in.Millis) * time.Millisecond):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			return in.Tag, nil
		}),
		tools.DefineNoInput("explode", "Panics.", func(context.Context) (string, error) {
			panic("kaboom")
		}),
		tools.DefineNoInput("broken", "Always fails.", func(context.Context) (string, error) {
			return "", errors.New("disk full")
		}),
		tools.DefineNoInput("today", "Returns a fixed date.", func(context.Context) (string, error) {
			return "05-Mar-25", nil
		}),
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

func newLoop(t *testing.T, m provider.Model) *runner.Loop {
	t.Helper()
	reg := testRegistry(t)
	return &runner.Loop{
		Model:      m,
		ModelID:    "gemini-3-flash-preview",
		System:     "You are a test assistant.",
		Registry:   reg,
		Dispatcher: &runner.Dispatcher{Registry: reg},
		Accountant: &usage.Accountant{Pricing: usage.Pricing{"gemini-3-flash-preview": {InputPerMillion: 0.5, OutputPerMillion: 3}}},
	}
}

func newConversation(text string) *memory.Conversation {
	conv := memory.NewConversation("conv-test")
	conv.Append(memory.NewUserText(text))
	return conv
}

func lastText(conv *memory.Conversation) string {
	last, _ := conv.Last()
	return last.Text()
}

func resultsOf(t *testing.T, m memory.Message) []memory.ToolResult {
	t.Helper()
	if m.Role != memory.RoleUser {
		t.Fatalf("results message role = %s, want user", m.Role)
	}
	out := make([]memory.ToolResult, 0, len(m.Parts))
	for i, p := range m.Parts {
		if p.ToolResult == nil {
			t.Fatalf("part %d is %s, want tool_call_result", i, p.Kind())
		}
		out = append(out, *p.ToolResult)
	}
	return out
}
