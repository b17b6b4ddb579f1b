package runner_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/petasbytes/snapbooks/internal/runner"
	"github.com/petasbytes/snapbooks/memory"
	"github.com/petasbytes/snapbooks/tools"
)

func TestDispatch_ResultsAlignWithRequests(t *testing.T) {
	d := &runner.Dispatcher{Registry: testRegistry(t)}
	// Later calls finish first.
	var calls []memory.ToolCall
	for i := 0; i < 6; i++ {
		calls = append(calls, memory.ToolCall{
			ID:   fmt.Sprintf("id-%d", i),
			Name: "sleep",
			Args: map[string]any{"millis": (6 - i) * 10, "tag": fmt.Sprintf("tag-%d", i)},
		})
	}

	results := d.Dispatch(context.Background(), calls)

	if len(results) != len(calls) {
		t.Fatalf("expected %d results, got %d", len(calls), len(results))
	}
	for i, r := range results {
		if r.ID != calls[i].ID || r.Name != "sleep" || r.Response != fmt.Sprintf("tag-%d", i) || r.Status != memory.StatusSuccess {
			t.Fatalf("result %d misaligned: %+v", i, r)
		}
	}
}

func TestDispatch_RunsConcurrently(t *testing.T) {
	d := &runner.Dispatcher{Registry: testRegistry(t)}
	calls := make([]memory.ToolCall, 5)
	for i := range calls {
		calls[i] = memory.ToolCall{Name: "sleep", Args: map[string]any{"millis": 200, "tag": "t"}}
	}

	start := time.Now()
	d.Dispatch(context.Background(), calls)

	if elapsed := time.Since(start); elapsed > 800*time.Millisecond {
		t.Fatalf("calls appear serialised: took %v", elapsed)
	}
}

func TestDispatch_ErrorIsolation(t *testing.T) {
	d := &runner.Dispatcher{Registry: testRegistry(t)}
	calls := []memory.ToolCall{
		{ID: "a", Name: "echo", Args: map[string]any{"text": "ok"}},
		{ID: "b", Name: "explode"},
		{ID: "c", Name: "broken"},
		{ID: "d", Name: "echo", Args: map[string]any{"text": 42}},
		{ID: "e", Name: "missing"},
		{ID: "f", Name: "echo", Args: map[string]any{"request": map[string]any{"text": "wrapped"}}},
	}

	results := d.Dispatch(context.Background(), calls)

	tests := []struct {
		status memory.Status
		prefix string
	}{
		{memory.StatusSuccess, "echo: ok"},
		{memory.StatusError, "Error in explode: panic: kaboom"},
		{memory.StatusError, "Error in broken: disk full"},
		{memory.StatusError, "Invalid arguments for echo: "},
		{memory.StatusError, "Tool 'missing' not found."},
		{memory.StatusSuccess, "echo: wrapped"},
	}
	for i, tt := range tests {
		r := results[i]
		if r.Status != tt.status || !strings.HasPrefix(r.Response, tt.prefix) {
			t.Errorf("result %d: got %s %q, want %s %q...", i, r.Status, r.Response, tt.status, tt.prefix)
		}
		if r.ID != calls[i].ID {
			t.Errorf("result %d: id %q, want %q", i, r.ID, calls[i].ID)
		}
	}
}

func TestDispatch_NilRegistry(t *testing.T) {
	d := &runner.Dispatcher{}

	results := d.Dispatch(context.Background(), []memory.ToolCall{{ID: "x1", Name: "x"}})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if r := results[0]; r.ID != "x1" || r.Status != memory.StatusError || r.Response != "Tool 'x' not found." {
		t.Fatalf("got %+v", r)
	}
}

func TestDispatch_NoInputToolIgnoresArguments(t *testing.T) {
	d := &runner.Dispatcher{Registry: testRegistry(t)}

	results := d.Dispatch(context.Background(), []memory.ToolCall{
		{Name: "today", Args: map[string]any{"unexpected": true}},
		{Name: "today"},
	})

	for i, r := range results {
		if r.Status != memory.StatusSuccess || r.Response != "05-Mar-25" {
			t.Fatalf("result %d: %+v", i, r)
		}
	}
}

func TestDispatch_MaxParallel(t *testing.T) {
	var running, peak atomic.Int32
	reg := tools.MustRegistry(tools.DefineNoInput("work", "Tracks concurrency.", func(context.Context) (string, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return "ok", nil
	}))
	d := &runner.Dispatcher{Registry: reg, MaxParallel: 2}

	calls := make([]memory.ToolCall, 8)
	for i := range calls {
		calls[i].Name = "work"
	}
	for i, r := range d.Dispatch(context.Background(), calls) {
		if r.Status != memory.StatusSuccess {
			t.Fatalf("call %d: %+v", i, r)
		}
	}

	if p := peak.Load(); p > 2 || p < 1 {
		t.Fatalf("peak concurrency = %d, want 1..2", p)
	}
}

func TestDispatch_EmptyBatch(t *testing.T) {
	d := &runner.Dispatcher{Registry: testRegistry(t)}
	if got := d.Dispatch(context.Background(), nil); len(got) != 0 {
		t.Fatalf("expected no results, got %v", got)
	}
}

func TestLoop_TurnIDSharedByModelCallAndToolExec(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGT_OBSERVE_JSON", "1")
	t.Setenv("AGT_ARTIFACTS_DIR", dir)

	m := &scripted{steps: []step{
		reply(call("", "echo", map[string]any{"text": "secret-payload"}), call("", "missing", nil)),
		reply(memory.TextPart("done")),
	}}
	newLoop(t, m).Run(context.Background(), newConversation("hi"))

	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	defer f.Close()

	byEvent := map[string][]map[string]any{}
	s := bufio.NewScanner(f)
	for s.Scan() {
		if strings.Contains(s.Text(), "secret-payload") {
			t.Fatalf("raw tool payload leaked: %s", s.Text())
		}
		var ev map[string]any
		if err := json.Unmarshal(s.Bytes(), &ev); err != nil {
			t.Fatalf("bad line: %v", err)
		}
		name, _ := ev["event"].(string)
		byEvent[name] = append(byEvent[name], ev)
	}

	if len(byEvent["model_call"]) != 2 || len(byEvent["tool_exec"]) != 2 || len(byEvent["loop_end"]) != 1 {
		t.Fatalf("unexpected event counts: model_call=%d tool_exec=%d loop_end=%d",
			len(byEvent["model_call"]), len(byEvent["tool_exec"]), len(byEvent["loop_end"]))
	}
	first := byEvent["model_call"][0]["turn_id"]
	if first == "" || first == byEvent["model_call"][1]["turn_id"] {
		t.Fatalf("each model call needs its own turn id: %v", first)
	}
	for _, ev := range byEvent["tool_exec"] {
		if ev["turn_id"] != first {
			t.Fatalf("tool_exec turn id %v, want %v", ev["turn_id"], first)
		}
	}
	if byEvent["loop_end"][0]["state"] != runner.RespondedFinal.String() {
		t.Fatalf("loop_end state: %v", byEvent["loop_end"][0]["state"])
	}
}
