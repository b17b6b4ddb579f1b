package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/petasbytes/snapbooks/tools"
)

func asArgumentError(err error, target **tools.ArgumentError) bool {
	return errors.As(err, target)
}

type echoInput struct {
	Name  string  `json:"name"`
	Count int     `json:"count,omitempty"`
	Note  *string `json:"note,omitempty" jsonschema:"nullable"`
}

func echoTool() tools.ToolDefinition {
	return tools.Define("echo", "Echo the name.", func(_ context.Context, in echoInput) (string, error) {
		return strings.Repeat(in.Name, max(in.Count, 1)), nil
	})
}

func TestDefine_BindsAndValidates(t *testing.T) {
	def := echoTool()
	if def.InputSchema == nil {
		t.Fatal("structured tool must advertise a schema")
	}

	cases := []struct {
		name    string
		args    string
		want    string
		argFail bool
	}{
		{"plain", `{"name":"a","count":2}`, "aa", false},
		{"request envelope", `{"request":{"name":"b"}}`, "b", false},
		{"explicit null optional", `{"name":"c","note":null}`, "c", false},
		{"integral float", `{"name":"d","count":2.0}`, "dd", false},
		{"missing required", `{"count":1}`, "", true},
		{"wrong type", `{"name":5}`, "", true},
		{"unknown property", `{"name":"e","extra":true}`, "", true},
		{"fractional integer", `{"name":"f","count":1.5}`, "", true},
		{"not json", `{"name":`, "", true},
		{"empty arguments", ``, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := def.Function(context.Background(), json.RawMessage(tc.args))
			if tc.argFail {
				var argErr *tools.ArgumentError
				if !errors.As(err, &argErr) {
					t.Fatalf("expected ArgumentError, got out=%q err=%v", out, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if out != tc.want {
				t.Fatalf("got %q want %q", out, tc.want)
			}
		})
	}
}

func TestDefineNoInput_IgnoresArguments(t *testing.T) {
	calls := 0
	def := tools.DefineNoInput("ping", "Ping.", func(context.Context) (string, error) {
		calls++
		return "pong", nil
	})
	if def.InputSchema != nil {
		t.Fatal("no-input tool must not advertise a schema")
	}
	for _, args := range []string{``, `{}`, `{"anything":[1,2,3]}`, `not even json`} {
		out, err := def.Function(context.Background(), json.RawMessage(args))
		if err != nil || out != "pong" {
			t.Fatalf("args %q: got %q, %v", args, out, err)
		}
	}
	if calls != 4 {
		t.Fatalf("handler calls = %d", calls)
	}
}

func TestDefine_HandlerErrorIsNotArgumentError(t *testing.T) {
	boom := errors.New("boom")
	def := tools.Define("fail", "Fails.", func(context.Context, echoInput) (string, error) {
		return "", boom
	})
	_, err := def.Function(context.Background(), json.RawMessage(`{"name":"x"}`))
	var argErr *tools.ArgumentError
	if !errors.Is(err, boom) || errors.As(err, &argErr) {
		t.Fatalf("want handler error passed through, got %v", err)
	}
}
