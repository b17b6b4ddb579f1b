package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrCyclicSchema is returned when a $ref chain refers back to itself.
	ErrCyclicSchema = errors.New("schema: cyclic $ref")
	// ErrUnknownRef is returned for a $ref that names no local definition.
	ErrUnknownRef = errors.New("schema: unresolvable $ref")
)

// NullableKey is the extension keyword set on collapsed optional unions.
const NullableKey = "nullable"

var refPrefixes = []string{"#/$defs/", "#/definitions/"}

type resolver struct {
	defs  jsonschema.Definitions
	stack []string
}

// Resolve returns a self-contained copy of raw: local $refs are inlined,
// single-member nullable unions are collapsed and presentation keywords
// are dropped. raw is not modified.
func Resolve(raw *jsonschema.Schema) (*jsonschema.Schema, error) {
	if raw == nil {
		return nil, nil
	}
	r := &resolver{defs: raw.Definitions}
	return r.resolve(raw)
}

// ResolveJSON is Resolve for a schema held as JSON.
func ResolveJSON(b []byte) ([]byte, error) {
	var raw jsonschema.Schema
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("schema: parse: %w", err)
	}
	// Draft-07 documents keep definitions under "definitions".
	var legacy struct {
		Definitions jsonschema.Definitions `json:"definitions"`
	}
	if err := json.Unmarshal(b, &legacy); err == nil && len(legacy.Definitions) > 0 {
		if raw.Definitions == nil {
			raw.Definitions = jsonschema.Definitions{}
		}
		for k, v := range legacy.Definitions {
			if _, ok := raw.Definitions[k]; !ok {
				raw.Definitions[k] = v
			}
		}
	}
	out, err := Resolve(&raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (r *resolver) resolve(s *jsonschema.Schema) (*jsonschema.Schema, error) {
	if s == nil {
		return nil, nil
	}
	if s.Ref != "" {
		return r.resolveRef(s)
	}
	if member, ok := singleNonNull(s); ok {
		out, err := r.resolve(member)
		if err != nil {
			return nil, err
		}
		if s.Description != "" {
			out.Description = s.Description
		}
		if s.Default != nil {
			out.Default = s.Default
		}
		out.Extras = withExtra(out.Extras, NullableKey, true)
		return out, nil
	}

	out := *s
	out.Version = ""
	out.ID = ""
	out.Definitions = nil
	out.Comments = ""
	out.Title = ""
	out.Extras = copyExtras(s.Extras)

	var err error
	if out.AllOf, err = r.resolveList(s.AllOf); err != nil {
		return nil, err
	}
	if out.AnyOf, err = r.resolveList(s.AnyOf); err != nil {
		return nil, err
	}
	if out.OneOf, err = r.resolveList(s.OneOf); err != nil {
		return nil, err
	}
	if out.PrefixItems, err = r.resolveList(s.PrefixItems); err != nil {
		return nil, err
	}
	for _, child := range []**jsonschema.Schema{
		&out.Not, &out.If, &out.Then, &out.Else, &out.Items,
		&out.Contains, &out.AdditionalProperties, &out.PropertyNames, &out.ContentSchema,
	} {
		if *child, err = r.resolve(*child); err != nil {
			return nil, err
		}
	}
	if out.DependentSchemas, err = r.resolveMap(s.DependentSchemas); err != nil {
		return nil, err
	}
	if out.PatternProperties, err = r.resolveMap(s.PatternProperties); err != nil {
		return nil, err
	}
	if s.Properties != nil {
		props := orderedmap.New[string, *jsonschema.Schema]()
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			p, err := r.resolve(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", pair.Key, err)
			}
			props.Set(pair.Key, p)
		}
		out.Properties = props
	}
	return &out, nil
}

func (r *resolver) resolveRef(s *jsonschema.Schema) (*jsonschema.Schema, error) {
	name, ok := defName(s.Ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRef, s.Ref)
	}
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRef, s.Ref)
	}
	for _, seen := range r.stack {
		if seen == name {
			return nil, fmt.Errorf("%w: %s", ErrCyclicSchema, strings.Join(append(r.stack, name), " -> "))
		}
	}
	r.stack = append(r.stack, name)
	out, err := r.resolve(def)
	r.stack = r.stack[:len(r.stack)-1]
	if err != nil {
		return nil, err
	}
	// Annotations placed next to the $ref win over the definition's own.
	if s.Description != "" {
		out.Description = s.Description
	}
	if s.Default != nil {
		out.Default = s.Default
	}
	return out, nil
}

func (r *resolver) resolveList(in []*jsonschema.Schema) ([]*jsonschema.Schema, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]*jsonschema.Schema, len(in))
	for i, s := range in {
		v, err := r.resolve(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *resolver) resolveMap(in map[string]*jsonschema.Schema) (map[string]*jsonschema.Schema, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]*jsonschema.Schema, len(in))
	for k, s := range in {
		v, err := r.resolve(s)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// singleNonNull reports the only non-null member of an anyOf/oneOf union.
func singleNonNull(s *jsonschema.Schema) (*jsonschema.Schema, bool) {
	union := s.AnyOf
	if union == nil {
		union = s.OneOf
	}
	if len(union) == 0 || (s.AnyOf != nil && s.OneOf != nil) {
		return nil, false
	}
	var member *jsonschema.Schema
	nulls := 0
	for _, m := range union {
		if isNull(m) {
			nulls++
			continue
		}
		if member != nil {
			return nil, false
		}
		member = m
	}
	return member, member != nil && nulls > 0
}

func isNull(s *jsonschema.Schema) bool {
	return s != nil && s.Type == "null" && s.Ref == "" && s.Properties == nil
}

func defName(ref string) (string, bool) {
	for _, p := range refPrefixes {
		if strings.HasPrefix(ref, p) {
			name := strings.TrimPrefix(ref, p)
			return name, name != ""
		}
	}
	return "", false
}

func copyExtras(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func withExtra(in map[string]any, key string, v any) map[string]any {
	out := copyExtras(in)
	if out == nil {
		out = make(map[string]any, 1)
	}
	out[key] = v
	return out
}

// IsNullable reports whether s was produced from a collapsed nullable union.
func IsNullable(s *jsonschema.Schema) bool {
	if s == nil {
		return false
	}
	v, ok := s.Extras[NullableKey].(bool)
	return ok && v
}
