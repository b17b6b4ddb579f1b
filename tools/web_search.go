package tools

import (
	"context"
	"strings"
)

// Searcher answers a free-text query from a live web search.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type WebSearchRequest struct {
	SearchQuery string `json:"search_query" jsonschema:"minLength=1" jsonschema_description:"A detailed web search query. For market rates, include material name, location, and 'current rate per ton/kg'. For HSN codes, include item name and 'HSN code GST rate India'."`
}

// NoResults is returned when the searcher produced no text.
const NoResults = "No results found."

// WebSearchTool looks up current market rates, GST rates, HSN codes and business details.
func WebSearchTool(s Searcher) ToolDefinition {
	return Define(
		"web_search",
		"Search the web for real-time information like current market rates, GST rates, HSN codes, or business details.",
		func(ctx context.Context, req WebSearchRequest) (string, error) {
			text, err := s.Search(ctx, req.SearchQuery)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(text) == "" {
				return NoResults, nil
			}
			return text, nil
		},
	)
}
