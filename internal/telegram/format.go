package telegram

import (
	"regexp"
	"strings"

	"github.com/petasbytes/snapbooks/memory"
)

// FallbackReply is sent when the final model turn carries no visible text.
const FallbackReply = "Processing complete."

var (
	reCodeFence  = regexp.MustCompile("```[\\s\\S]*?```")
	reBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet     = regexp.MustCompile(`(?m)^[*-] `)
	reItalic     = regexp.MustCompile(`\*([^*\n]+?)\*`)
	reInlineCode = regexp.MustCompile("`([^`]+)`")
)

// FormatForTelegram strips the markdown the model tends to produce so the
// reply reads cleanly as plain Telegram text.
func FormatForTelegram(text string) string {
	text = reCodeFence.ReplaceAllString(text, "")
	text = reBold.ReplaceAllString(text, "$1")
	text = reBullet.ReplaceAllString(text, "• ")
	text = reItalic.ReplaceAllString(text, "$1")
	text = reInlineCode.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// ExtractResponseText returns the visible text of the newest message.
func ExtractResponseText(conv *memory.Conversation) string {
	if conv == nil {
		return FallbackReply
	}
	last, ok := conv.Last()
	if !ok {
		return FallbackReply
	}
	if text := last.Text(); text != "" {
		return text
	}
	return FallbackReply
}

const invoicePrefix = "Invoice generated: "

// ExtractInvoicePath finds the newest invoice written during the latest run:
// it scans backwards through tool results and stops at the inbound user
// message that started the run.
func ExtractInvoicePath(conv *memory.Conversation) (string, bool) {
	if conv == nil {
		return "", false
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		m := conv.Messages[i]
		if m.Role != memory.RoleUser {
			continue
		}
		results := 0
		for j := len(m.Parts) - 1; j >= 0; j-- {
			r := m.Parts[j].ToolResult
			if r == nil {
				continue
			}
			results++
			if r.Status != memory.StatusSuccess {
				continue
			}
			if _, after, ok := strings.Cut(r.Response, invoicePrefix); ok {
				line, _, _ := strings.Cut(after, "\n")
				if line = strings.TrimSpace(line); line != "" {
					return line, true
				}
			}
		}
		if results == 0 {
			return "", false
		}
	}
	return "", false
}
