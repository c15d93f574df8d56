package mcp

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/alphavantage-mcp/internal/catalog"
	"github.com/bobmcallan/alphavantage-mcp/internal/dispatch"
)

// RegisterTools registers every catalog tool on the server, each wired to the
// dispatcher. Returns the number of tools registered.
func RegisterTools(s *server.MCPServer, d *dispatch.Dispatcher) int {
	tools := d.Catalog().Tools()
	for _, t := range tools {
		s.AddTool(BuildMCPTool(t), ToolHandler(d, t.Name))
	}
	return len(tools)
}

// BuildMCPTool converts a catalog tool into an mcp.Tool. The preset parameter
// of an indicator pack is exposed as an enum of the registered preset names.
func BuildMCPTool(t *catalog.Tool) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(t.Description),
	}
	for i := range t.Params {
		p := &t.Params[i]
		enum := p.Enum
		if p.Name == t.PresetParam && t.PresetParam != "" {
			enum = t.PresetNames()
		}
		opts = append(opts, buildParamOption(p, enum))
	}
	return mcp.NewTool(t.Name, opts...)
}

// buildParamOption maps a catalog parameter to the matching mcp-go option.
// Integers are advertised as numbers; the validator rejects fractions.
func buildParamOption(p *catalog.Param, enum []string) mcp.ToolOption {
	props := []mcp.PropertyOption{mcp.Description(paramDescription(p))}
	if p.Required {
		props = append(props, mcp.Required())
	}

	def := p.DefaultValue()
	switch p.Type {
	case catalog.TypeNumber, catalog.TypeInteger:
		switch v := def.(type) {
		case float64:
			props = append(props, mcp.DefaultNumber(v))
		case int64:
			props = append(props, mcp.DefaultNumber(float64(v)))
		}
		return mcp.WithNumber(p.Name, props...)

	case catalog.TypeBoolean:
		if v, ok := def.(bool); ok {
			props = append(props, mcp.DefaultBool(v))
		}
		return mcp.WithBoolean(p.Name, props...)

	case catalog.TypeArray:
		items := map[string]any{"type": "string"}
		if len(enum) > 0 {
			items["enum"] = enum
		}
		props = append(props, mcp.Items(items))
		return mcp.WithArray(p.Name, props...)

	default:
		if len(enum) > 0 {
			props = append(props, mcp.Enum(enum...))
		}
		if v, ok := def.(string); ok && v != "" {
			props = append(props, mcp.DefaultString(v))
		}
		return mcp.WithString(p.Name, props...)
	}
}

func paramDescription(p *catalog.Param) string {
	desc := p.Description
	switch p.Type {
	case catalog.TypeDate:
		desc = strings.TrimSpace(desc + " Format YYYY-MM-DD.")
	case catalog.TypeInteger:
		desc = strings.TrimSpace(desc + " Whole number.")
	case catalog.TypeArray:
		desc = strings.TrimSpace(desc + " A comma-separated string is also accepted.")
		if items, ok := p.DefaultValue().([]string); ok && len(items) > 0 {
			desc += fmt.Sprintf(" Defaults to %s.", strings.Join(items, ", "))
		}
	}
	return desc
}
