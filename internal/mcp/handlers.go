package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/alphavantage-mcp/internal/dispatch"
	"github.com/bobmcallan/alphavantage-mcp/internal/toolerr"
)

// textResult creates an MCP result with a single text block.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// errorResult creates an MCP error result whose text is {"error": {...}}.
// Errors that are not already classified are reported as UpstreamRejected.
func errorResult(err error) *mcp.CallToolResult {
	te, ok := toolerr.As(err)
	if !ok {
		te = toolerr.Wrap(toolerr.UpstreamRejected, err, "tool invocation failed")
	}
	body, merr := json.Marshal(map[string]any{"error": te})
	if merr != nil {
		body = []byte(`{"error":{"kind":"UpstreamRejected","message":"failed to encode error","retryable":false}}`)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(body)),
		},
		IsError: true,
	}
}

// ToolHandler returns a handler that runs the named tool through the
// dispatcher. Tool failures are reported in the result, never as a Go error,
// so the client always receives a well-formed tools/call response.
func ToolHandler(d *dispatch.Dispatcher, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := d.Dispatch(ctx, name, r.GetArguments())
		if err != nil {
			return errorResult(err), nil
		}

		out, err := json.Marshal(res)
		if err != nil {
			return errorResult(toolerr.Wrap(toolerr.UpstreamRejected, err, "failed to encode result").WithTool(name)), nil
		}
		return textResult(string(out)), nil
	}
}
