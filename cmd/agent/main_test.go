package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/petasbytes/snapbooks/internal/config"
	"github.com/petasbytes/snapbooks/internal/contacts"
	"github.com/petasbytes/snapbooks/internal/runner"
	"github.com/petasbytes/snapbooks/internal/usage"
	"github.com/petasbytes/snapbooks/memory"
)

// isolate keeps config discovery away from the developer's files.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	return t.TempDir()
}

func TestContactsAdd_PersistsToDatabase(t *testing.T) {
	dataDir := isolate(t)

	err := newCommand().Run(context.Background(), []string{
		"snapbooks", "--data-dir", dataDir, "--log-level", "error",
		"contacts", "add", "--name", "Sharma Traders", "--gstin", "07AAACS1234A1Z5", "--city", "Delhi",
	})
	if err != nil {
		t.Fatalf("contacts add: %v", err)
	}

	book, err := contacts.OpenBook(filepath.Join(dataDir, "snapbooks.db"))
	if err != nil {
		t.Fatalf("open book: %v", err)
	}
	defer book.Close()
	list, err := book.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Sharma Traders" || list[0].GSTIN != "07AAACS1234A1Z5" {
		t.Fatalf("contacts = %+v", list)
	}
}

func TestLoadConfig_ExplicitMissingFile(t *testing.T) {
	isolate(t)
	err := newCommand().Run(context.Background(), []string{
		"snapbooks", "--config", "/nonexistent/snapbooks.yaml", "usage",
	})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()
	if err := os.WriteFile("config.yaml", []byte("models:\n  default: gemini-2.5-pro\n  max_calls: 4\nlog_level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var got *config.Config
	cmd := newCommand()
	cmd.Commands = append(cmd.Commands, &cli.Command{
		Name: "probe",
		Action: func(_ context.Context, c *cli.Command) error {
			var err error
			got, err = loadConfig(c)
			return err
		},
	})
	err := cmd.Run(context.Background(), []string{
		"snapbooks", "--model", "claude-haiku-4", "--data-dir", dataDir, "probe",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got == nil {
		t.Fatal("probe action did not run")
	}
	if got.Models.Default != "claude-haiku-4" {
		t.Errorf("model = %q, want flag value", got.Models.Default)
	}
	if got.Models.MaxCalls != 4 {
		t.Errorf("max_calls = %d, want file value 4", got.Models.MaxCalls)
	}
	if got.LogLevel != "debug" {
		t.Errorf("log_level = %q, want file value", got.LogLevel)
	}
	if got.Storage.DataDir != dataDir {
		t.Errorf("data_dir = %q, want %q", got.Storage.DataDir, dataDir)
	}
}

type fakeAgent struct {
	conv *memory.Conversation
	got  []memory.Message
	err  error
}

func (f *fakeAgent) Handle(_ context.Context, convID string, msg memory.Message) (*memory.Conversation, runner.Outcome, error) {
	f.got = append(f.got, msg)
	if f.err != nil && f.conv == nil {
		return nil, runner.Outcome{}, f.err
	}
	if f.conv == nil {
		f.conv = memory.NewConversation(convID)
	}
	f.conv.Append(msg, memory.NewModelText("Invoice ready for *Sharma Traders*."))
	f.conv.Cost += 0.001
	return f.conv, runner.Outcome{State: runner.RespondedFinal, Calls: 1, Cost: 0.001}, f.err
}

func TestChatLoop_TextAndPhoto(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "bill.JPG")
	if err := os.WriteFile(photo, []byte{0xff, 0xd8, 0xff}, 0o600); err != nil {
		t.Fatal(err)
	}
	in := strings.NewReader("hello\n\n/photo " + photo + "\n/photo " + filepath.Join(dir, "missing.png") + "\n")
	var out bytes.Buffer
	agent := &fakeAgent{}

	if err := chatLoop(context.Background(), agent, "cli", in, &out); err != nil {
		t.Fatalf("chatLoop: %v", err)
	}

	if len(agent.got) != 2 {
		t.Fatalf("agent saw %d messages, want 2", len(agent.got))
	}
	if agent.got[0].Text() != "hello" {
		t.Errorf("first message = %q", agent.got[0].Text())
	}
	parts := agent.got[1].Parts
	if len(parts) != 2 || parts[0].Binary == nil || parts[0].Binary.MIMEType != "image/jpeg" {
		t.Fatalf("photo message parts = %+v", parts)
	}
	s := out.String()
	for _, want := range []string{"Invoice ready for *Sharma Traders*.", "responded_final", "read photo"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func TestChatLoop_AgentError(t *testing.T) {
	var out bytes.Buffer
	agent := &fakeAgent{err: errors.New("load conversation cli: disk gone")}
	if err := chatLoop(context.Background(), agent, "cli", strings.NewReader("hi\n"), &out); err != nil {
		t.Fatalf("chatLoop: %v", err)
	}
	if !strings.Contains(out.String(), "error: load conversation cli: disk gone") {
		t.Fatalf("output:\n%s", out.String())
	}
}

func TestChatLoop_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pr, pw := io.Pipe()
	defer pw.Close()
	var out bytes.Buffer
	if err := chatLoop(ctx, &fakeAgent{}, "cli", pr, &out); err != nil {
		t.Fatalf("chatLoop: %v", err)
	}
	if !strings.Contains(out.String(), "Exiting") {
		t.Fatalf("output:\n%s", out.String())
	}
}

func TestChatMessage_RejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := chatMessage("/photo " + path); err == nil {
		t.Fatal("expected error for a text file")
	}
}

func TestWriteUsage(t *testing.T) {
	var buf bytes.Buffer
	total := &usage.Summary{TotalRecords: 3, TotalInputTokens: 12000, TotalOutputTokens: 900, TotalCostUSD: 0.0087, ClampedRecords: 1}
	byModel := map[string]*usage.Summary{
		"gemini-3-flash-preview": {TotalRecords: 2, TotalInputTokens: 8000, TotalOutputTokens: 600, TotalCostUSD: 0.0058},
		"gemini-2.5-flash":       {TotalRecords: 1, TotalInputTokens: 4000, TotalOutputTokens: 300, TotalCostUSD: 0.0029},
	}
	writeUsage(&buf, total, byModel)

	s := buf.String()
	if strings.Index(s, "gemini-3-flash-preview") > strings.Index(s, "gemini-2.5-flash") {
		t.Errorf("models not ordered by cost:\n%s", s)
	}
	for _, want := range []string{"12,000", "0.008700", "1 record(s)"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}
