package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/alphavantage-mcp/internal/catalog"
	"github.com/bobmcallan/alphavantage-mcp/internal/common"
)

// versionInfo is the payload of get_version.
type versionInfo struct {
	Version        string `json:"version"`
	Build          string `json:"build"`
	Commit         string `json:"commit"`
	CatalogVersion string `json:"catalog_version"`
	Tools          int    `json:"tools"`
}

// VersionTool returns the mcp.Tool definition for get_version.
func VersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the gateway version and the number of Alpha Vantage tools it serves. Use this to verify connectivity."),
	)
}

// VersionToolHandler reports build info and catalog size. It never calls upstream.
func VersionToolHandler(cat *catalog.Catalog) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := json.Marshal(versionInfo{
			Version:        common.GetVersion(),
			Build:          common.GetBuild(),
			Commit:         common.GetGitCommit(),
			CatalogVersion: cat.Version(),
			Tools:          cat.Len(),
		})
		if err != nil {
			return errorResult(err), nil
		}
		return textResult(string(out)), nil
	}
}
