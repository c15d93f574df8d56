// Package catalog holds the immutable tool table: every tool the gateway
// exposes, its parameter schema, the upstream endpoints it maps onto and its
// preset bundles. The table is loaded once at start-up and shared read-only.
package catalog

// ParamType is the declared type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeDate    ParamType = "date"
	TypeArray   ParamType = "array"
)

func (t ParamType) valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeDate, TypeArray:
		return true
	}
	return false
}

// Family selects how a tool's upstream payloads are shaped. The set is
// closed: the normalizer switches over it exhaustively and the loader rejects
// anything else.
type Family string

const (
	FamilyQuote            Family = "quote"
	FamilyTimeSeries       Family = "time_series"
	FamilyLatestBar        Family = "latest_bar"
	FamilyIndicatorPack    Family = "indicator_pack"
	FamilySymbolSearch     Family = "symbol_search"
	FamilyExchangeRate     Family = "exchange_rate"
	FamilyEarnings         Family = "earnings"
	FamilyCorporateActions Family = "corporate_actions"
	FamilyRecords          Family = "records"
)

// Families lists every family in declaration order.
var Families = []Family{
	FamilyQuote,
	FamilyTimeSeries,
	FamilyLatestBar,
	FamilyIndicatorPack,
	FamilySymbolSearch,
	FamilyExchangeRate,
	FamilyEarnings,
	FamilyCorporateActions,
	FamilyRecords,
}

// Valid reports whether f is a member of the closed family set.
func (f Family) Valid() bool {
	for _, known := range Families {
		if f == known {
			return true
		}
	}
	return false
}

// Param describes one declared tool parameter.
type Param struct {
	Name        string    `yaml:"name"`
	Type        ParamType `yaml:"type"`
	Required    bool      `yaml:"required"`
	Enum        []string  `yaml:"enum"`
	Default     any       `yaml:"default"`
	Description string    `yaml:"description"`

	// defaultValue is Default after coercion to Type; nil when undeclared.
	defaultValue any
}

// DefaultValue returns the coerced default, or nil.
func (p *Param) DefaultValue() any { return p.defaultValue }

// Binding forwards a tool parameter to an upstream query parameter.
type Binding struct {
	Param    string
	Upstream string
}

// Endpoint maps a tool onto one upstream function.
type Endpoint struct {
	Key      string            `yaml:"key"`
	Function string            `yaml:"function"`
	Datatype string            `yaml:"datatype"`
	Pass     []string          `yaml:"pass"`
	Fixed    map[string]string `yaml:"fixed"`

	// When restricts the endpoint to invocations whose formatted parameter
	// values are listed. WhenSet and WhenUnset test parameter presence.
	When      map[string][]string `yaml:"when"`
	WhenSet   []string            `yaml:"when_set"`
	WhenUnset []string            `yaml:"when_unset"`

	// Expand issues one request per element of an array parameter, sent as
	// ExpandAs. "{value}" in Key is replaced by the element.
	Expand   string `yaml:"expand"`
	ExpandAs string `yaml:"expand_as"`

	bindings []Binding
}

// Bindings returns the parsed Pass list.
func (e *Endpoint) Bindings() []Binding { return e.bindings }

// PresetBundle is a named set of upstream parameter values, keyed by
// endpoint key and then upstream parameter name.
type PresetBundle struct {
	Name      string
	Endpoints map[string]map[string]string
}

// Values returns the bundle's parameters for one endpoint.
func (b *PresetBundle) Values(endpointKey string) map[string]string {
	return b.Endpoints[endpointKey]
}

// Tool is the immutable definition of one callable tool.
type Tool struct {
	Name        string                               `yaml:"name"`
	Description string                               `yaml:"description"`
	Family      Family                               `yaml:"family"`
	Pack        bool                                 `yaml:"pack"`
	RowLimit    int                                  `yaml:"row_limit"`
	PresetParam string                               `yaml:"preset_param"`
	Params      []Param                              `yaml:"params"`
	Endpoints   []Endpoint                           `yaml:"endpoints"`
	RawPresets  map[string]map[string]map[string]any `yaml:"presets"`

	presets     map[string]*PresetBundle
	presetNames []string
	params      map[string]*Param
}

// Param looks up a declared parameter.
func (t *Tool) Param(name string) (*Param, bool) {
	p, ok := t.params[name]
	return p, ok
}

// Preset looks up a preset bundle by name.
func (t *Tool) Preset(name string) (*PresetBundle, bool) {
	b, ok := t.presets[name]
	return b, ok
}

// PresetNames returns the registered preset names, sorted.
func (t *Tool) PresetNames() []string {
	out := make([]string, len(t.presetNames))
	copy(out, t.presetNames)
	return out
}
