package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/petasbytes/snapbooks/internal/runner"
	"github.com/petasbytes/snapbooks/memory"
)

func TestHandle_CreatesRunsAndSaves(t *testing.T) {
	store := memory.NewMemoryStore()
	m := &scripted{steps: []step{
		reply(call("", "today", nil)),
		reply(memory.TextPart("Today is 05-Mar-25.")),
	}}
	r := runner.New(store, newLoop(t, m), nil)

	conv, out, err := r.Handle(context.Background(), "chat-1", memory.NewUserText("what day is it?"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.State != runner.RespondedFinal || out.Calls != 2 {
		t.Fatalf("got %+v", out)
	}
	if conv.ID != "chat-1" || conv.Title != memory.DefaultTitle {
		t.Fatalf("unexpected conversation header: %q %q", conv.ID, conv.Title)
	}

	saved, err := store.Load(context.Background(), "chat-1")
	if err != nil || saved == nil {
		t.Fatalf("load saved: %v %v", saved, err)
	}
	if len(saved.Messages) != 4 || !saved.Settled() {
		t.Fatalf("saved transcript has %d messages, settled=%v", len(saved.Messages), saved.Settled())
	}
}

func TestHandle_AppendsToExistingConversation(t *testing.T) {
	store := memory.NewMemoryStore()
	m := &scripted{steps: []step{reply(memory.TextPart("ok"))}}
	r := runner.New(store, newLoop(t, m), nil)
	ctx := context.Background()

	if _, _, err := r.Handle(ctx, "chat-2", memory.NewUserText("first")); err != nil {
		t.Fatal(err)
	}
	conv, _, err := r.Handle(ctx, "chat-2", memory.Message{Role: memory.RoleModel, Parts: []memory.Part{memory.TextPart("second")}})
	if err != nil {
		t.Fatal(err)
	}

	if len(conv.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[2].Role != memory.RoleUser || conv.Messages[2].Text() != "second" {
		t.Fatalf("inbound message should be stored as user: %+v", conv.Messages[2])
	}
}

type failingStore struct {
	loadErr, saveErr error
}

func (s failingStore) Load(context.Context, string) (*memory.Conversation, error) {
	return nil, s.loadErr
}

func (s failingStore) Save(context.Context, *memory.Conversation) error { return s.saveErr }

func TestHandle_StorageErrors(t *testing.T) {
	boom := errors.New("database is locked")

	t.Run("load", func(t *testing.T) {
		m := &scripted{steps: []step{reply(memory.TextPart("never"))}}
		r := runner.New(failingStore{loadErr: boom}, newLoop(t, m), nil)
		_, _, err := r.Handle(context.Background(), "c", memory.NewUserText("hi"))
		if !errors.Is(err, boom) || m.Calls() != 0 {
			t.Fatalf("err=%v calls=%d", err, m.Calls())
		}
	})

	t.Run("save", func(t *testing.T) {
		m := &scripted{steps: []step{reply(memory.TextPart("ok"))}}
		r := runner.New(failingStore{saveErr: boom}, newLoop(t, m), nil)
		conv, out, err := r.Handle(context.Background(), "c", memory.NewUserText("hi"))
		if !errors.Is(err, boom) {
			t.Fatalf("err=%v", err)
		}
		if conv == nil || out.State != runner.RespondedFinal {
			t.Fatalf("run result should still be returned: %v %+v", conv, out)
		}
	})
}
