package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tools.yaml
var defaultDocument []byte

// document is the YAML layout of a catalog file.
type document struct {
	Version string `yaml:"version"`
	Tools   []Tool `yaml:"tools"`
}

// Catalog is the immutable tool table. It is safe for concurrent use because
// nothing mutates it after Load returns.
type Catalog struct {
	version string
	tools   []*Tool
	byName  map[string]*Tool
}

// Default loads the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Load(defaultDocument)
}

// Load parses and validates a catalog document.
func Load(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse tool catalog: %w", err)
	}
	if len(doc.Tools) == 0 {
		return nil, fmt.Errorf("tool catalog declares no tools")
	}

	c := &Catalog{
		version: doc.Version,
		tools:   make([]*Tool, 0, len(doc.Tools)),
		byName:  make(map[string]*Tool, len(doc.Tools)),
	}
	for i := range doc.Tools {
		t := &doc.Tools[i]
		if err := prepareTool(t); err != nil {
			return nil, err
		}
		if _, dup := c.byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name)
		}
		c.byName[t.Name] = t
		c.tools = append(c.tools, t)
	}
	return c, nil
}

// Version returns the catalog document version.
func (c *Catalog) Version() string { return c.version }

// Len returns the number of tools.
func (c *Catalog) Len() int { return len(c.tools) }

// Lookup returns the tool with the given name.
func (c *Catalog) Lookup(name string) (*Tool, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// Tools returns the tools in declaration order.
func (c *Catalog) Tools() []*Tool {
	out := make([]*Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// prepareTool validates a decoded tool and fills its derived fields.
func prepareTool(t *Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if !t.Family.Valid() {
		return fmt.Errorf("tool %q has unknown family %q", t.Name, t.Family)
	}
	if len(t.Endpoints) == 0 {
		return fmt.Errorf("tool %q declares no endpoints", t.Name)
	}

	t.params = make(map[string]*Param, len(t.Params))
	for i := range t.Params {
		p := &t.Params[i]
		if err := prepareParam(t.Name, p); err != nil {
			return err
		}
		if _, dup := t.params[p.Name]; dup {
			return fmt.Errorf("tool %q declares parameter %q twice", t.Name, p.Name)
		}
		t.params[p.Name] = p
	}

	keys := make(map[string]bool, len(t.Endpoints))
	for i := range t.Endpoints {
		e := &t.Endpoints[i]
		if err := prepareEndpoint(t, e); err != nil {
			return err
		}
		if keys[e.Key] {
			return fmt.Errorf("tool %q declares endpoint key %q twice", t.Name, e.Key)
		}
		keys[e.Key] = true
	}

	if !t.Pack && (len(t.Endpoints) > 1 && !endpointsExclusive(t)) {
		return fmt.Errorf("tool %q has several unconditional endpoints but is not a pack", t.Name)
	}
	for _, e := range t.Endpoints {
		if !t.Pack && e.Expand != "" {
			return fmt.Errorf("tool %q expands endpoint %q but is not a pack", t.Name, e.Key)
		}
	}
	if t.Pack {
		if err := checkPackParamsBound(t); err != nil {
			return err
		}
	}

	return preparePresets(t, keys)
}

// checkPackParamsBound rejects a pack parameter that no endpoint reads, since
// a caller could set it and see it silently dropped.
func checkPackParamsBound(t *Tool) error {
	used := map[string]bool{t.PresetParam: true}
	for _, e := range t.Endpoints {
		for _, b := range e.bindings {
			used[b.Param] = true
		}
		for name := range e.When {
			used[name] = true
		}
		for _, name := range append(append([]string{}, e.WhenSet...), e.WhenUnset...) {
			used[name] = true
		}
		used[e.Expand] = true
	}
	for _, p := range t.Params {
		if !used[p.Name] {
			return fmt.Errorf("pack %q declares parameter %q that no endpoint uses", t.Name, p.Name)
		}
	}
	return nil
}

func prepareParam(tool string, p *Param) error {
	if p.Name == "" {
		return fmt.Errorf("tool %q has a parameter with empty name", tool)
	}
	if !p.Type.valid() {
		return fmt.Errorf("tool %q parameter %q has unknown type %q", tool, p.Name, p.Type)
	}
	if len(p.Enum) > 0 && p.Type != TypeString && p.Type != TypeArray {
		return fmt.Errorf("tool %q parameter %q: enum is only supported on string and array", tool, p.Name)
	}
	if p.Default == nil {
		return nil
	}
	v, err := coerce(p.Type, p.Default)
	if err != nil {
		return fmt.Errorf("tool %q parameter %q has invalid default: %w", tool, p.Name, err)
	}
	if err := checkEnum(p, v); err != nil {
		return fmt.Errorf("tool %q parameter %q default: %w", tool, p.Name, err)
	}
	p.defaultValue = v
	return nil
}

func prepareEndpoint(t *Tool, e *Endpoint) error {
	if e.Key == "" {
		return fmt.Errorf("tool %q has an endpoint with empty key", t.Name)
	}
	if e.Function == "" {
		return fmt.Errorf("tool %q endpoint %q has empty function", t.Name, e.Key)
	}
	if strings.ToUpper(e.Function) != e.Function {
		return fmt.Errorf("tool %q endpoint %q function %q must be upper case", t.Name, e.Key, e.Function)
	}
	switch e.Datatype {
	case "":
		e.Datatype = "json"
	case "json", "csv":
	default:
		return fmt.Errorf("tool %q endpoint %q has unsupported datatype %q", t.Name, e.Key, e.Datatype)
	}

	e.bindings = make([]Binding, 0, len(e.Pass))
	for _, pass := range e.Pass {
		name, upstream, found := strings.Cut(pass, ":")
		if !found {
			upstream = name
		}
		if _, ok := t.params[name]; !ok {
			return fmt.Errorf("tool %q endpoint %q forwards undeclared parameter %q", t.Name, e.Key, name)
		}
		e.bindings = append(e.bindings, Binding{Param: name, Upstream: upstream})
	}

	for _, name := range sortedKeys(e.When) {
		if _, ok := t.params[name]; !ok {
			return fmt.Errorf("tool %q endpoint %q conditions on undeclared parameter %q", t.Name, e.Key, name)
		}
	}
	for _, name := range append(append([]string{}, e.WhenSet...), e.WhenUnset...) {
		if _, ok := t.params[name]; !ok {
			return fmt.Errorf("tool %q endpoint %q conditions on undeclared parameter %q", t.Name, e.Key, name)
		}
	}

	if e.Expand != "" {
		p, ok := t.params[e.Expand]
		if !ok || p.Type != TypeArray {
			return fmt.Errorf("tool %q endpoint %q expands over %q, which is not an array parameter", t.Name, e.Key, e.Expand)
		}
		if e.ExpandAs == "" {
			return fmt.Errorf("tool %q endpoint %q expands without expand_as", t.Name, e.Key)
		}
		if !strings.Contains(e.Key, "{value}") {
			return fmt.Errorf("tool %q endpoint %q expands but its key has no {value}", t.Name, e.Key)
		}
	}
	return nil
}

// endpointsExclusive reports whether every endpoint of t is guarded by a
// condition, so that a non-pack tool selects exactly one of them.
func endpointsExclusive(t *Tool) bool {
	for _, e := range t.Endpoints {
		if len(e.When) == 0 && len(e.WhenSet) == 0 && len(e.WhenUnset) == 0 {
			return false
		}
	}
	return true
}

func preparePresets(t *Tool, endpointKeys map[string]bool) error {
	if t.PresetParam == "" {
		if len(t.RawPresets) > 0 {
			return fmt.Errorf("tool %q declares presets without preset_param", t.Name)
		}
		return nil
	}

	p, ok := t.params[t.PresetParam]
	if !ok || p.Type != TypeString {
		return fmt.Errorf("tool %q preset_param %q must be a declared string parameter", t.Name, t.PresetParam)
	}
	if len(p.Enum) > 0 {
		return fmt.Errorf("tool %q preset_param %q must not declare an enum", t.Name, t.PresetParam)
	}
	if len(t.RawPresets) == 0 {
		return fmt.Errorf("tool %q has preset_param but no presets", t.Name)
	}

	t.presets = make(map[string]*PresetBundle, len(t.RawPresets))
	for name, perEndpoint := range t.RawPresets {
		bundle := &PresetBundle{Name: name, Endpoints: make(map[string]map[string]string, len(perEndpoint))}
		for key, values := range perEndpoint {
			if !endpointKeys[key] {
				return fmt.Errorf("tool %q preset %q references unknown endpoint %q", t.Name, name, key)
			}
			rendered := make(map[string]string, len(values))
			for upstream, v := range values {
				rendered[upstream] = FormatValue(v)
			}
			bundle.Endpoints[key] = rendered
		}
		t.presets[name] = bundle
		t.presetNames = append(t.presetNames, name)
	}
	sort.Strings(t.presetNames)

	if def, ok := p.defaultValue.(string); ok {
		if _, known := t.presets[def]; !known {
			return fmt.Errorf("tool %q default preset %q is not registered", t.Name, def)
		}
	}
	return nil
}
