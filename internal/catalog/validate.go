package catalog

import (
	"fmt"
	"slices"
	"sort"

	"github.com/bobmcallan/alphavantage-mcp/internal/toolerr"
)

// Params are the validated, coerced parameters of one invocation. Values
// holds both caller-supplied values and applied defaults; Supplied tells them
// apart so presets can sit between the two.
type Params struct {
	values   map[string]any
	supplied map[string]bool
}

// NewParams builds Params directly. Values listed in supplied are treated
// as caller-provided.
func NewParams(values map[string]any, supplied ...string) Params {
	p := Params{values: make(map[string]any, len(values)), supplied: make(map[string]bool, len(supplied))}
	for k, v := range values {
		p.values[k] = v
	}
	for _, k := range supplied {
		p.supplied[k] = true
	}
	return p
}

// Get returns the value of name, if present.
func (p Params) Get(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Has reports whether name has a value.
func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Supplied reports whether the caller provided name explicitly.
func (p Params) Supplied(name string) bool { return p.supplied[name] }

// String returns the formatted value of name, or "".
func (p Params) String(name string) string { return FormatValue(p.values[name]) }

// Strings returns an array parameter.
func (p Params) Strings(name string) []string {
	v, _ := p.values[name].([]string)
	return slices.Clone(v)
}

// Names returns the names of all present parameters, sorted.
func (p Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of all present values.
func (p Params) Values() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		if s, ok := v.([]string); ok {
			v = slices.Clone(s)
		}
		out[k] = v
	}
	return out
}

// Validate checks args against the declared schema of the named tool. It
// never touches the network and never mutates the catalog or args. Every
// rejection is a *toolerr.Error of a caller-error kind.
func (c *Catalog) Validate(name string, args map[string]any) (*Tool, Params, error) {
	t, ok := c.Lookup(name)
	if !ok {
		return nil, Params{}, toolerr.New(toolerr.UnknownTool, "tool %q is not registered", name).WithTool(name)
	}

	p := Params{values: make(map[string]any, len(t.Params)), supplied: make(map[string]bool, len(args))}
	for i := range t.Params {
		decl := &t.Params[i]

		raw, present := args[decl.Name]
		if present && isBlank(raw) {
			present = false
		}
		if !present {
			if decl.defaultValue != nil {
				p.values[decl.Name] = decl.defaultValue
				continue
			}
			if decl.Required {
				return nil, Params{}, paramError(toolerr.MissingRequiredParameter, t, decl, "parameter %q is required", decl.Name)
			}
			continue
		}

		v, err := coerce(decl.Type, raw)
		if err != nil {
			return nil, Params{}, paramError(toolerr.TypeMismatch, t, decl, "parameter %q: %v", decl.Name, err)
		}
		if err := checkEnum(decl, v); err != nil {
			return nil, Params{}, paramError(toolerr.InvalidEnumValue, t, decl, "parameter %q: %v", decl.Name, err)
		}
		if isEmpty(v) {
			// e.g. an array of blanks: treat like an omitted value
			if decl.defaultValue != nil {
				p.values[decl.Name] = decl.defaultValue
				continue
			}
			if decl.Required {
				return nil, Params{}, paramError(toolerr.MissingRequiredParameter, t, decl, "parameter %q is required", decl.Name)
			}
			continue
		}

		p.values[decl.Name] = v
		p.supplied[decl.Name] = true
	}
	return t, p, nil
}

func paramError(kind toolerr.Kind, t *Tool, decl *Param, format string, args ...any) *toolerr.Error {
	e := toolerr.New(kind, format, args...).WithTool(t.Name)
	e.Param = decl.Name
	return e
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && len(s) == 0
}

func checkEnum(decl *Param, v any) error {
	if len(decl.Enum) == 0 {
		return nil
	}
	switch x := v.(type) {
	case string:
		if !slices.Contains(decl.Enum, x) {
			return fmt.Errorf("%q is not one of %v", x, decl.Enum)
		}
	case []string:
		for _, item := range x {
			if !slices.Contains(decl.Enum, item) {
				return fmt.Errorf("%q is not one of %v", item, decl.Enum)
			}
		}
	}
	return nil
}
