package tools

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/snapbooks/internal/fsops"
)

// InvoiceDir is where generated invoices live, relative to the workspace root.
const InvoiceDir = "invoices"

type ListInvoicesInput struct {
	Page     int `json:"page,omitempty" jsonschema_description:"1-based page number (default 1)."`
	PageSize int `json:"page_size,omitempty" jsonschema_description:"Page size (default 50)."`
}

const defaultListPageSize = 50

var ListInvoicesDefinition = Define(
	"list_invoices",
	"List the file names of generated invoices, sorted by name (which starts with the invoice date).",
	ListInvoices,
)

// ListInvoices pages through the rendered documents in the invoice directory.
// Contract: returns a JSON-encoded []string; an out-of-range page is "[]".
func ListInvoices(_ context.Context, in ListInvoicesInput) (string, error) {
	page := in.Page
	if page <= 0 {
		page = 1
	}
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = defaultListPageSize
	}

	names, err := fsops.ListFiles(InvoiceDir, ".html")
	if err != nil {
		return "", err
	}

	start := (page - 1) * pageSize
	if start >= len(names) {
		return "[]", nil
	}
	end := start + pageSize
	if end > len(names) {
		end = len(names)
	}

	b, err := json.Marshal(names[start:end])
	if err != nil {
		return "", err
	}
	return string(b), nil
}
