// Package resolve expands a validated tool invocation into the concrete,
// ordered list of upstream requests it needs.
package resolve

import (
	"net/url"
	"sort"
	"strings"

	"github.com/bobmcallan/alphavantage-mcp/internal/catalog"
	"github.com/bobmcallan/alphavantage-mcp/internal/toolerr"
)

// EndpointRequest is one concrete upstream call. It never carries the API
// credential; the client attaches it at send time.
type EndpointRequest struct {
	Key      string
	Function string
	Datatype string
	Params   map[string]string
}

// Query returns the request as url.Values, including function and datatype.
func (r EndpointRequest) Query() url.Values {
	q := make(url.Values, len(r.Params)+2)
	for k, v := range r.Params {
		q.Set(k, v)
	}
	q.Set("function", r.Function)
	if r.Datatype != "" {
		q.Set("datatype", r.Datatype)
	}
	return q
}

// ParamNames returns the upstream parameter names, sorted.
func (r EndpointRequest) ParamNames() []string {
	names := make([]string, 0, len(r.Params))
	for k := range r.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// String renders the request deterministically, e.g.
// "rsi RSI?interval=daily&symbol=MSFT&time_period=14".
func (r EndpointRequest) String() string {
	var b strings.Builder
	b.WriteString(r.Key)
	b.WriteString(" ")
	b.WriteString(r.Function)
	b.WriteString("?")
	for i, k := range r.ParamNames() {
		if i > 0 {
			b.WriteString("&")
		}
		b.WriteString(k + "=" + r.Params[k])
	}
	return b.String()
}

// Resolve maps a validated invocation onto endpoint requests. For the same
// tool and params it always returns the same requests in the same order.
//
// Values are layered per endpoint: fixed values, then catalog defaults, then
// the selected preset bundle, then values the caller supplied explicitly.
func Resolve(tool *catalog.Tool, params catalog.Params) ([]EndpointRequest, error) {
	var bundle *catalog.PresetBundle
	if tool.PresetParam != "" {
		name := params.String(tool.PresetParam)
		b, ok := tool.Preset(name)
		if !ok {
			err := toolerr.New(toolerr.UnknownPreset, "preset %q is not registered; known presets: %s",
				name, strings.Join(tool.PresetNames(), ", ")).WithTool(tool.Name)
			err.Param = tool.PresetParam
			return nil, err
		}
		bundle = b
	}

	var reqs []EndpointRequest
	for i := range tool.Endpoints {
		e := &tool.Endpoints[i]
		if !selected(e, params) {
			continue
		}
		if e.Expand == "" {
			reqs = append(reqs, build(e, e.Key, bundle, params))
			continue
		}
		for _, v := range params.Strings(e.Expand) {
			r := build(e, strings.ReplaceAll(e.Key, "{value}", v), bundle, params)
			r.Params[e.ExpandAs] = v
			reqs = append(reqs, r)
		}
	}

	if len(reqs) == 0 {
		return nil, toolerr.New(toolerr.InvalidEnumValue, "no upstream endpoint matches the given parameters").WithTool(tool.Name)
	}
	if !tool.Pack && len(reqs) > 1 {
		return nil, toolerr.New(toolerr.InvalidEnumValue, "parameters select %d upstream endpoints for a single-endpoint tool", len(reqs)).WithTool(tool.Name)
	}
	return reqs, nil
}

func selected(e *catalog.Endpoint, params catalog.Params) bool {
	for name, allowed := range e.When {
		if !params.Has(name) {
			return false
		}
		v := params.String(name)
		match := false
		for _, a := range allowed {
			if a == v {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	for _, name := range e.WhenSet {
		if !params.Has(name) {
			return false
		}
	}
	for _, name := range e.WhenUnset {
		if params.Has(name) {
			return false
		}
	}
	return true
}

func build(e *catalog.Endpoint, key string, bundle *catalog.PresetBundle, params catalog.Params) EndpointRequest {
	out := make(map[string]string)
	for k, v := range e.Fixed {
		out[k] = v
	}

	// catalog defaults sit below presets
	for _, b := range e.Bindings() {
		if params.Has(b.Param) && !params.Supplied(b.Param) {
			out[b.Upstream] = params.String(b.Param)
		}
	}
	if bundle != nil {
		for k, v := range bundle.Values(e.Key) {
			out[k] = v
		}
	}
	for _, b := range e.Bindings() {
		if params.Supplied(b.Param) {
			out[b.Upstream] = params.String(b.Param)
		}
	}

	for k, v := range out {
		if v == "" {
			delete(out, k)
		}
	}

	return EndpointRequest{
		Key:      key,
		Function: e.Function,
		Datatype: e.Datatype,
		Params:   out,
	}
}
