// Package server runs the streamable HTTP transport: the MCP endpoint plus
// health and version routes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/alphavantage-mcp/internal/catalog"
	"github.com/bobmcallan/alphavantage-mcp/internal/common"
)

// maxRequestBody caps JSON-RPC request bodies.
const maxRequestBody = 1 << 20

// Server manages the HTTP server and routes.
type Server struct {
	mcp     http.Handler
	catalog *catalog.Catalog
	router  *http.ServeMux
	server  *http.Server
	logger  *common.Logger
}

// New creates an HTTP server listening on port that serves mcpHandler at /mcp.
func New(port int, mcpHandler http.Handler, cat *catalog.Catalog, logger *common.Logger) *Server {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Server{
		mcp:     mcpHandler,
		catalog: cat,
		logger:  logger,
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.withMiddleware(s.router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second, // packs fan out to several upstream calls
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
