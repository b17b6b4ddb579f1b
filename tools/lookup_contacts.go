package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petasbytes/snapbooks/internal/contacts"
)

type LookupContactsRequest struct {
	Query    string `json:"query" jsonschema:"minLength=1" jsonschema_description:"Search query to match against contact names (partial match supported)"`
	Metadata bool   `json:"metadata,omitempty" jsonschema_description:"If false, return only names and IDs. If true, return full details (address, GSTIN, phone, etc.)"`
}

// LookupContactsTool searches the contact book by name.
func LookupContactsTool(book *contacts.Book) ToolDefinition {
	return Define(
		"lookup_contacts",
		"Search contacts by name. Set metadata=true to get full details (address, GSTIN, phone), or false for just names and IDs.",
		func(ctx context.Context, req LookupContactsRequest) (string, error) {
			found, err := book.Search(ctx, req.Query)
			if err != nil {
				return "", fmt.Errorf("looking up contacts: %w", err)
			}
			if len(found) == 0 {
				return fmt.Sprintf("No contacts found matching '%s'.", req.Query), nil
			}
			var out any = found
			if !req.Metadata {
				briefs := make([]contacts.Brief, len(found))
				for i, c := range found {
					briefs[i] = c.Brief()
				}
				out = briefs
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	)
}
