package tools

import (
	"context"
	"path"
	"strings"

	"github.com/petasbytes/snapbooks/internal/fsops"
	"github.com/petasbytes/snapbooks/internal/invoice"
)

type GenerateInvoiceRequest struct {
	InvoiceData invoice.InvoiceData `json:"invoice_data" jsonschema_description:"Extracted invoice data"`
	UserID      *string             `json:"user_id,omitempty" jsonschema:"nullable" jsonschema_description:"Telegram user ID for tracking"`
	Archive     bool                `json:"archive,omitempty" jsonschema_description:"Whether to record the invoice in the archive shown on the dashboard"`
}

// GenerateInvoiceTool renders an invoice into the workspace and optionally archives it.
func GenerateInvoiceTool(deps Deps) ToolDefinition {
	return Define(
		"generate_invoice",
		"Generate a GST-compliant invoice document in the standard Indian tax invoice format.",
		func(ctx context.Context, req GenerateInvoiceRequest) (string, error) {
			doc, err := invoice.Render(req.InvoiceData, deps.now())
			if err != nil {
				return "", err
			}
			rel := path.Join(InvoiceDir, doc.Filename)
			if err := fsops.WriteBytes(rel, doc.HTML); err != nil {
				return "", err
			}
			if err := fsops.WriteFile(sourcePath(doc.Filename), doc.Markdown); err != nil {
				return "", err
			}
			deps.logger().Info("invoice_generated", "path", rel, "number", doc.Number)

			msg := "Invoice generated: " + rel
			if req.Archive && deps.Invoices != nil {
				id := archiveID(doc.Number)
				userID := ""
				if req.UserID != nil {
					userID = *req.UserID
				}
				rec := invoice.NewRecord(id, req.InvoiceData, doc.Number, rel, userID)
				if _, err := deps.Invoices.Save(ctx, rec); err != nil {
					// The document exists; a failed archive write does not fail the tool.
					deps.logger().Warn("invoice_archive_failed", "id", id, "error", err)
				} else {
					msg += "\nArchived as: " + id
				}
			}
			return msg, nil
		},
	)
}

func archiveID(number string) string {
	return strings.NewReplacer("/", "-", " ", "").Replace(number)
}
