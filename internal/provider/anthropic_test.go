package provider_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/petasbytes/snapbooks/internal/provider"
	"github.com/petasbytes/snapbooks/memory"
	"github.com/petasbytes/snapbooks/tools"
	"github.com/tidwall/gjson"
)

func newAnthropic(rt http.RoundTripper) *provider.Anthropic {
	cli := provider.NewAnthropicClient(
		option.WithHTTPClient(&http.Client{Transport: rt}),
		option.WithAPIKey("test-key"),
	)
	return &provider.Anthropic{Client: cli}
}

func toolRoundTrip() []memory.Message {
	return []memory.Message{
		{Role: memory.RoleUser, Parts: []memory.Part{
			memory.BinaryPart("image/jpeg", []byte{0xff, 0xd8}),
			memory.TextPart("Process this bill"),
		}},
		{Role: memory.RoleModel, Parts: []memory.Part{
			memory.TextPart("Looking up the buyer"),
			memory.ToolCallPart(memory.ToolCall{Name: "lookup_contacts", Args: map[string]any{"query": "Acme"}}),
			memory.ToolCallPart(memory.ToolCall{Name: "current_date"}),
		}},
		{Role: memory.RoleUser, Parts: []memory.Part{
			memory.ToolResultPart(memory.ToolResult{Name: "lookup_contacts", Response: "[]", Status: memory.StatusSuccess}),
			memory.ToolResultPart(memory.ToolResult{Name: "current_date", Response: "boom", Status: memory.StatusError}),
		}},
	}
}

func TestAnthropic_RequestMapping(t *testing.T) {
	fake := &fakeTransport{respStatus: 200, respBody: []byte(`{"id":"m1","type":"message","role":"assistant","content":[{"type":"text","text":"ok"}],"usage":{"input_tokens":1,"output_tokens":1}}`)}
	descs := tools.MustRegistry(tools.Builtin(tools.Deps{})...).Descriptors()

	_, err := newAnthropic(fake).CallModel(context.Background(), provider.Request{
		Model:    "claude-sonnet-4-5",
		System:   "be brief",
		Messages: toolRoundTrip(),
		Tools:    descs,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	body := fake.lastBody()

	if got := gjson.GetBytes(body, "system.0.text").String(); got != "be brief" {
		t.Fatalf("system = %q", got)
	}
	if got := gjson.GetBytes(body, "messages.0.content.0.type").String(); got != "image" {
		t.Fatalf("first user block = %q", got)
	}
	if got := gjson.GetBytes(body, "messages.0.content.0.source.data").String(); got != "/9g=" {
		t.Fatalf("image data = %q", got)
	}
	useA := gjson.GetBytes(body, "messages.1.content.1.id").String()
	useB := gjson.GetBytes(body, "messages.1.content.2.id").String()
	resA := gjson.GetBytes(body, "messages.2.content.0.tool_use_id").String()
	resB := gjson.GetBytes(body, "messages.2.content.1.tool_use_id").String()
	if useA == "" || useA == useB || useA != resA || useB != resB {
		t.Fatalf("tool ids not paired: uses %q %q results %q %q", useA, useB, resA, resB)
	}
	if !gjson.GetBytes(body, "messages.2.content.1.is_error").Bool() {
		t.Fatal("error result must carry is_error")
	}
	if got := gjson.GetBytes(body, "tools.0.name").String(); got != "generate_invoice" {
		t.Fatalf("first tool = %q", got)
	}
	if got := gjson.GetBytes(body, "tools.0.input_schema.properties.invoice_data.type").String(); got != "object" {
		t.Fatalf("invoice_data schema type = %q", got)
	}
	if gjson.GetBytes(body, "tools.0.input_schema.properties.invoice_data.$ref").Exists() {
		t.Fatal("schema refs should be resolved")
	}
	if got := gjson.GetBytes(body, "tools.#(name==\"current_date\").input_schema.type").String(); got != "object" {
		t.Fatalf("no-input tool schema type = %q", got)
	}
}

func TestAnthropic_ResponseMapping(t *testing.T) {
	fake := &fakeTransport{respStatus: 200, respBody: []byte(`{
		"id":"m1","type":"message","role":"assistant",
		"content":[
			{"type":"thinking","thinking":"plan","signature":"sig"},
			{"type":"text","text":"Generating"},
			{"type":"tool_use","id":"toolu_1","name":"generate_invoice","input":{"archive":true}}
		],
		"usage":{"input_tokens":100,"cache_read_input_tokens":40,"output_tokens":30}
	}`)}

	resp, err := newAnthropic(fake).CallModel(context.Background(), provider.Request{Messages: []memory.Message{memory.NewUserText("hi")}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	parts := resp.Message.Parts
	if resp.Message.Role != memory.RoleModel || len(parts) != 3 {
		t.Fatalf("message = %+v", resp.Message)
	}
	if !parts[0].Thought || string(parts[0].Signature) != "sig" {
		t.Fatalf("thinking block lost: %+v", parts[0])
	}
	call := parts[2].ToolCall
	if call == nil || call.ID != "toolu_1" || call.Args["archive"] != true {
		t.Fatalf("tool call = %+v", call)
	}
	u := resp.Usage
	if u == nil || u.Prompt != 140 || u.Cached != 40 || u.Candidates != 30 || u.Total != 170 {
		t.Fatalf("usage = %+v", u)
	}
}

func TestAnthropic_CacheWritesCountAsPrompt(t *testing.T) {
	fake := &fakeTransport{respStatus: 200, respBody: []byte(`{
		"id":"m1","type":"message","role":"assistant",
		"content":[{"type":"text","text":"ok"}],
		"usage":{"input_tokens":10,"cache_creation_input_tokens":5000,"cache_read_input_tokens":200,"output_tokens":20}
	}`)}

	resp, err := newAnthropic(fake).CallModel(context.Background(), provider.Request{Messages: []memory.Message{memory.NewUserText("hi")}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	u := resp.Usage
	if u == nil || u.Prompt != 5210 || u.Cached != 200 || u.Candidates != 20 || u.Total != 5230 {
		t.Fatalf("usage = %+v", u)
	}
}

func TestAnthropic_EmptyContent(t *testing.T) {
	fake := &fakeTransport{respStatus: 200, respBody: []byte(`{"id":"m1","type":"message","role":"assistant","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`)}
	_, err := newAnthropic(fake).CallModel(context.Background(), provider.Request{Messages: []memory.Message{memory.NewUserText("hi")}})
	if !errors.Is(err, provider.ErrEmptyResponse) {
		t.Fatalf("want ErrEmptyResponse, got %v", err)
	}
}

func TestAnthropic_TransportErrorIsNotRetriedBySDK(t *testing.T) {
	fake := &fakeTransport{respStatus: 500, respBody: []byte(`{"type":"error","error":{"type":"api_error","message":"down"}}`)}
	_, err := newAnthropic(fake).CallModel(context.Background(), provider.Request{Messages: []memory.Message{memory.NewUserText("hi")}})
	if err == nil || errors.Is(err, provider.ErrEmptyResponse) {
		t.Fatalf("want transport error, got %v", err)
	}
	if n := len(fake.bodies); n != 1 {
		t.Fatalf("SDK retried: %d requests", n)
	}
}
