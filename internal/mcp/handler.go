// Package mcp exposes the tool catalog over the Model Context Protocol.
package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/alphavantage-mcp/internal/common"
	"github.com/bobmcallan/alphavantage-mcp/internal/dispatch"
)

// NewServer creates an MCP server with every catalog tool and get_version
// registered. The same server backs both the stdio and HTTP transports.
func NewServer(name, version string, d *dispatch.Dispatcher, logger *common.Logger) *mcpserver.MCPServer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	mcpSrv := mcpserver.NewMCPServer(
		name,
		version,
		mcpserver.WithToolCapabilities(true),
	)

	toolCount := RegisterTools(mcpSrv, d)
	mcpSrv.AddTool(VersionTool(), VersionToolHandler(d.Catalog()))

	logger.Info().
		Int("tools", toolCount).
		Str("catalog_version", d.Catalog().Version()).
		Msg("MCP server initialized")
	return mcpSrv
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler wraps an MCP server in a stateless streamable HTTP handler.
func NewHandler(mcpSrv *mcpserver.MCPServer, logger *common.Logger) *Handler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Handler{
		streamable: mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithStateLess(true),
		),
		logger: logger,
	}
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("mcp request")
	h.streamable.ServeHTTP(w, r)
}
