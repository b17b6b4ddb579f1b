package tools

import (
	"context"
	"path"
	"strings"

	"github.com/petasbytes/snapbooks/internal/fsops"
)

type ReadInvoiceInput struct {
	Path   string `json:"path" jsonschema_description:"Invoice file name as returned by list_invoices or generate_invoice."`
	Offset int    `json:"offset,omitempty" jsonschema_description:"Line offset (0-based) to start reading from."`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"Maximum lines to return from offset (default 200)."`
}

const defaultReadLimit = 200 // fallback page size when limit <= 0
const truncationSentinel = "-- truncated; use offset/limit to fetch more --\n"
const maxLineRunes = 2000     // per-line clamp
const overallRuneCap = 12_000 // overall cap after join

var ReadInvoiceDefinition = Define(
	"read_invoice",
	"Read the text of a previously generated invoice. Long documents are paged with offset/limit.",
	ReadInvoice,
)

// Helper: clamp a string to at most n runes
func clampRunes(s string, n int) (string, bool) {
	if n <= 0 {
		return "", len([]rune(s)) > 0
	}
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}

// sourcePath maps an invoice name to the Markdown source stored next to it.
// Only the base name is used, so callers cannot leave the invoice directory.
func sourcePath(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, ".html")
	base = strings.TrimSuffix(base, ".md")
	return path.Join(InvoiceDir, base+".md")
}

// ReadInvoice reads an invoice's Markdown source via fsops and applies small,
// deterministic caps for LLM-facing pagination:
//   - offset: 0-based starting line (negatives clamped to 0)
//   - limit: number of lines to return (<= 0 defaults to 200)
//
// If not all lines are returned, it appends a trailing sentinel to signal pagination.
func ReadInvoice(_ context.Context, in ReadInvoiceInput) (string, error) {
	content, err := fsops.ReadFile(sourcePath(in.Path))
	if err != nil {
		return "", err
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	lines := strings.Split(content, "\n")
	if offset > len(lines) {
		offset = len(lines)
	}
	end := offset + limit
	if end > len(lines) {
		end = len(lines)
	}

	// Clamp each line to maxLineRunes, tracking if any truncation occurred
	truncated := end < len(lines)
	for i := offset; i < end; i++ {
		if clamped, did := clampRunes(lines[i], maxLineRunes); did {
			lines[i] = clamped
			truncated = true
		}
	}

	out := strings.Join(lines[offset:end], "\n")

	if clamped, did := clampRunes(out, overallRuneCap); did {
		out = clamped
		truncated = true
	}

	if truncated {
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += truncationSentinel
	}
	return out, nil
}
