package tools

import (
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/petasbytes/snapbooks/internal/schema"
)

// ErrDuplicateTool is returned when two definitions share a name.
var ErrDuplicateTool = errors.New("duplicate tool name")

// Descriptor is what the model is told about a tool. A nil Schema means the
// tool takes no input.
type Descriptor struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}

// Registry is the fixed tool set for the process. It is safe for concurrent reads.
type Registry struct {
	defs        []ToolDefinition
	byName      map[string]int
	descriptors []Descriptor
}

// NewRegistry validates defs and resolves every input schema once.
func NewRegistry(defs ...ToolDefinition) (*Registry, error) {
	r := &Registry{
		defs:        make([]ToolDefinition, 0, len(defs)),
		byName:      make(map[string]int, len(defs)),
		descriptors: make([]Descriptor, 0, len(defs)),
	}
	for _, d := range defs {
		if d.Name == "" {
			return nil, errors.New("tool name is required")
		}
		if d.Function == nil {
			return nil, fmt.Errorf("tool %s: handler is required", d.Name)
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, d.Name)
		}
		resolved, err := schema.Resolve(d.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", d.Name, err)
		}
		r.byName[d.Name] = len(r.defs)
		r.defs = append(r.defs, d)
		r.descriptors = append(r.descriptors, Descriptor{Name: d.Name, Description: d.Description, Schema: resolved})
	}
	return r, nil
}

// MustRegistry is NewRegistry for process start; it panics on error.
func MustRegistry(defs ...ToolDefinition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup finds a tool by name. A nil Registry has no tools.
func (r *Registry) Lookup(name string) (ToolDefinition, bool) {
	if r == nil {
		return ToolDefinition{}, false
	}
	i, ok := r.byName[name]
	if !ok {
		return ToolDefinition{}, false
	}
	return r.defs[i], true
}

// Definitions returns the tools in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	return append([]ToolDefinition(nil), r.defs...)
}

// Descriptors returns the resolved descriptors in registration order.
// The slice and schemas are shared and must not be modified.
func (r *Registry) Descriptors() []Descriptor {
	return r.descriptors
}
