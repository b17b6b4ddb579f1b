package telegram_test

import (
	"testing"

	"github.com/petasbytes/snapbooks/internal/telegram"
	"github.com/petasbytes/snapbooks/memory"
)

func TestFormatForTelegram(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"bold", "Total is **₹1,180**.", "Total is ₹1,180."},
		{"italic", "an *estimated* figure", "an estimated figure"},
		{"star_bullets", "Items:\n* Steel rod\n* Cement", "Items:\n• Steel rod\n• Cement"},
		{"dash_bullets", "- one\n- two", "• one\n• two"},
		{"code_fence", "Here:\n```json\n{\"a\":1}\n```\nDone", "Here:\n\nDone"},
		{"inline_code", "Saved to `invoices/a.html`", "Saved to invoices/a.html"},
		{"trim", "\n  hello  \n", "hello"},
		{"plain", "nothing to do", "nothing to do"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := telegram.FormatForTelegram(tt.in); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractResponseText(t *testing.T) {
	conv := memory.NewConversation("c")
	if got := telegram.ExtractResponseText(conv); got != telegram.FallbackReply {
		t.Fatalf("empty conversation: %q", got)
	}

	conv.Append(memory.Message{Role: memory.RoleModel, Parts: []memory.Part{
		{Text: "thinking about GST", Thought: true},
		memory.TextPart("Invoice ready."),
		memory.TextPart("Anything else?"),
	}})
	if got := telegram.ExtractResponseText(conv); got != "Invoice ready.\nAnything else?" {
		t.Fatalf("got %q", got)
	}

	conv.Append(memory.Message{Role: memory.RoleModel, Parts: []memory.Part{{Text: "only thoughts", Thought: true}}})
	if got := telegram.ExtractResponseText(conv); got != telegram.FallbackReply {
		t.Fatalf("thought-only reply: %q", got)
	}
}

func results(rs ...memory.ToolResult) memory.Message {
	parts := make([]memory.Part, len(rs))
	for i, r := range rs {
		parts[i] = memory.ToolResultPart(r)
	}
	return memory.Message{Role: memory.RoleUser, Parts: parts}
}

func TestExtractInvoicePath(t *testing.T) {
	generated := func(p string) memory.ToolResult {
		return memory.ToolResult{Name: "generate_invoice", Status: memory.StatusSuccess, Response: "Invoice generated: " + p + "\nArchived as: INV-1"}
	}

	t.Run("current_run", func(t *testing.T) {
		conv := memory.NewConversation("c")
		conv.Append(
			memory.NewUserText("bill"),
			memory.Message{Role: memory.RoleModel, Parts: []memory.Part{memory.ToolCallPart(memory.ToolCall{Name: "generate_invoice"})}},
			results(
				memory.ToolResult{Name: "lookup_contacts", Status: memory.StatusSuccess, Response: "[]"},
				generated("invoices/SB_a.html"),
			),
			memory.NewModelText("Done"),
		)
		got, ok := telegram.ExtractInvoicePath(conv)
		if !ok || got != "invoices/SB_a.html" {
			t.Fatalf("got %q %v", got, ok)
		}
	})

	t.Run("earlier_run_ignored", func(t *testing.T) {
		conv := memory.NewConversation("c")
		conv.Append(
			results(generated("invoices/old.html")),
			memory.NewModelText("Done"),
			memory.NewUserText("thanks"),
			memory.NewModelText("You're welcome"),
		)
		if got, ok := telegram.ExtractInvoicePath(conv); ok {
			t.Fatalf("picked up an invoice from an earlier run: %q", got)
		}
	})

	t.Run("failed_result_ignored", func(t *testing.T) {
		conv := memory.NewConversation("c")
		conv.Append(
			memory.NewUserText("bill"),
			results(memory.ToolResult{Name: "generate_invoice", Status: memory.StatusError, Response: "Error in generate_invoice: Invoice generated: nope"}),
			memory.NewModelText("Sorry"),
		)
		if _, ok := telegram.ExtractInvoicePath(conv); ok {
			t.Fatal("error result should not count")
		}
	})
}
