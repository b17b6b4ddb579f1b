package provider

import (
	"context"
	"fmt"
	"strings"
)

// Router sends each request to the provider registered for the longest
// prefix of its model id.
type Router struct {
	routes   map[string]Model
	fallback Model
}

// NewRouter routes by model-id prefix, e.g. "gemini-", "claude-", "gpt-".
func NewRouter(routes map[string]Model) *Router {
	r := &Router{routes: make(map[string]Model, len(routes))}
	for prefix, m := range routes {
		if m != nil {
			r.routes[prefix] = m
		}
	}
	return r
}

// WithFallback sets the model used for ids that match no prefix.
func (r *Router) WithFallback(m Model) *Router {
	r.fallback = m
	return r
}

// ModelFor returns the provider for model, or nil.
func (r *Router) ModelFor(model string) Model {
	best := -1
	var out Model
	for prefix, m := range r.routes {
		if strings.HasPrefix(model, prefix) && len(prefix) > best {
			best, out = len(prefix), m
		}
	}
	if out == nil {
		return r.fallback
	}
	return out
}

func (r *Router) CallModel(ctx context.Context, req Request) (*Response, error) {
	m := r.ModelFor(req.Model)
	if m == nil {
		return nil, fmt.Errorf("no provider configured for model %q", req.Model)
	}
	return m.CallModel(ctx, req)
}
