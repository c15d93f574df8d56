// Package normalize shapes raw upstream payloads into the stable result
// format returned to MCP clients. Everything here is a pure function of its
// inputs: payloads are read, never modified.
package normalize

import (
	"github.com/bobmcallan/alphavantage-mcp/internal/alphavantage"
	"github.com/bobmcallan/alphavantage-mcp/internal/catalog"
	"github.com/bobmcallan/alphavantage-mcp/internal/toolerr"
)

// Result is the normalized payload of one invocation.
type Result map[string]any

// Entry status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Entry is one member of a pack result.
type Entry struct {
	Key      string         `json:"key"`
	Function string         `json:"function"`
	Status   string         `json:"status"`
	Data     map[string]any `json:"data,omitempty"`
	Error    *toolerr.Error `json:"error,omitempty"`
}

// Normalize shapes the fetched results of one invocation. results must be in
// request order.
//
// A single-endpoint tool fails with the error of its only request. A pack
// tool succeeds as long as one member succeeded; failed members are marked
// in place. Only when every member failed does it return
// AllSubrequestsFailed, carrying each member's error.
func Normalize(tool *catalog.Tool, params catalog.Params, results []alphavantage.Result) (Result, error) {
	if len(results) == 0 {
		return nil, toolerr.New(toolerr.UpstreamRejected, "no upstream results to normalize").WithTool(tool.Name)
	}
	if !tool.Pack {
		return single(tool, params, results[0])
	}
	return pack(tool, params, results)
}

func single(tool *catalog.Tool, params catalog.Params, r alphavantage.Result) (Result, error) {
	if r.Err != nil {
		return nil, attribute(r.Err, tool, r.Request.Function)
	}
	fields, err := shape(tool, params, r.Request.Function, r.Response.Payload)
	if err != nil {
		return nil, attribute(err, tool, r.Request.Function)
	}

	out := Result{"tool": tool.Name}
	for k, v := range fields {
		out[k] = v
	}
	return out, nil
}

func pack(tool *catalog.Tool, params catalog.Params, results []alphavantage.Result) (Result, error) {
	entries := make([]Entry, len(results))
	var failures []*toolerr.Error

	for i, r := range results {
		e := Entry{Key: r.Request.Key, Function: r.Request.Function}

		err := r.Err
		var data map[string]any
		if err == nil {
			data, err = shape(tool, params, r.Request.Function, r.Response.Payload)
		}
		if err != nil {
			te := attribute(err, nil, r.Request.Function)
			e.Status = StatusError
			e.Error = te
			failures = append(failures, te)
		} else {
			e.Status = StatusOK
			e.Data = data
		}
		entries[i] = e
	}

	if len(failures) == len(results) {
		all := toolerr.New(toolerr.AllSubrequestsFailed, "all %d upstream requests failed", len(results)).WithTool(tool.Name)
		all.Failures = failures
		return nil, all
	}

	return Result{
		"tool": tool.Name,
		"metadata": map[string]any{
			"parameters": formatParams(params),
			"requested":  len(results),
			"failed":     len(failures),
		},
		"entries": entries,
	}, nil
}

// attribute converts err to a *toolerr.Error tagged with the endpoint and,
// when tool is non-nil, the tool.
func attribute(err error, tool *catalog.Tool, function string) *toolerr.Error {
	te, ok := toolerr.As(err)
	if !ok {
		te = toolerr.Wrap(toolerr.UpstreamRejected, err, "unexpected %s payload", function)
	}
	if te.Endpoint == "" {
		te = te.WithEndpoint(function)
	}
	if tool != nil && te.Tool == "" {
		te = te.WithTool(tool.Name)
	}
	return te
}

func formatParams(params catalog.Params) map[string]any {
	out := make(map[string]any)
	for _, name := range params.Names() {
		v, _ := params.Get(name)
		if s, ok := v.([]string); ok {
			items := make([]any, len(s))
			for i, item := range s {
				items[i] = item
			}
			v = items
		}
		out[name] = v
	}
	return out
}
