package mcp

import (
	"encoding/json"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/alphavantage-mcp/internal/catalog"
	"github.com/bobmcallan/alphavantage-mcp/internal/common"
)

func TestVersionToolHandler(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	handler := VersionToolHandler(cat)

	result, err := handler(t.Context(), mcpgo.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}

	var info versionInfo
	text := result.Content[0].(mcpgo.TextContent).Text
	if err := json.Unmarshal([]byte(text), &info); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if info.Version != common.GetVersion() {
		t.Errorf("expected version %s, got %s", common.GetVersion(), info.Version)
	}
	if info.Tools != cat.Len() {
		t.Errorf("expected %d tools, got %d", cat.Len(), info.Tools)
	}
	if info.CatalogVersion != cat.Version() {
		t.Errorf("expected catalog version %s, got %s", cat.Version(), info.CatalogVersion)
	}
}

func TestVersionTool_NoParameters(t *testing.T) {
	tool := VersionTool()
	if tool.Name != "get_version" {
		t.Errorf("expected get_version, got %s", tool.Name)
	}
	if len(tool.InputSchema.Properties) != 0 {
		t.Errorf("expected no parameters, got %v", tool.InputSchema.Properties)
	}
}
