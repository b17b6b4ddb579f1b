package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/petasbytes/snapbooks/internal/contacts"
	"github.com/petasbytes/snapbooks/internal/invoice"
)

// DateLayout is the date format the assistant writes on invoices.
const DateLayout = "02-Jan-06"

// Deps are the collaborators the built-in tools need. Tools whose
// dependency is nil are left out of the set.
type Deps struct {
	Invoices *invoice.Archive
	Contacts *contacts.Book
	Searcher Searcher
	Now      func() time.Time
	Logger   *slog.Logger
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// CurrentDateTool reports today's date. It takes no input.
func CurrentDateTool(deps Deps) ToolDefinition {
	return DefineNoInput(
		"current_date",
		"Get today's date (DD-Mon-YY), for invoices whose bill shows no date.",
		func(context.Context) (string, error) {
			return deps.now().Format(DateLayout), nil
		},
	)
}

// Builtin returns the assistant's tool set in advertisement order.
func Builtin(deps Deps) []ToolDefinition {
	defs := []ToolDefinition{GenerateInvoiceTool(deps)}
	if deps.Contacts != nil {
		defs = append(defs, LookupContactsTool(deps.Contacts))
	}
	if deps.Searcher != nil {
		defs = append(defs, WebSearchTool(deps.Searcher))
	}
	return append(defs, ListInvoicesDefinition, ReadInvoiceDefinition, CurrentDateTool(deps))
}
