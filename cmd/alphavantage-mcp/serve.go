package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/alphavantage-mcp/internal/alphavantage"
	"github.com/bobmcallan/alphavantage-mcp/internal/catalog"
	"github.com/bobmcallan/alphavantage-mcp/internal/common"
	"github.com/bobmcallan/alphavantage-mcp/internal/config"
	"github.com/bobmcallan/alphavantage-mcp/internal/dispatch"
	"github.com/bobmcallan/alphavantage-mcp/internal/mcp"
	"github.com/bobmcallan/alphavantage-mcp/internal/server"
)

type serveOptions struct {
	configFile string
	port       int
	stdio      bool
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", config.DefaultConfigFile, "Configuration file path")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "HTTP port (overrides config)")
	cmd.Flags().BoolVar(&opts.stdio, "stdio", false, "Use stdio transport (for desktop MCP clients)")
	return cmd
}

// loadConfig resolves configuration: defaults, file, .env, environment, flags.
// An explicitly named config file must exist.
func loadConfig(opts *serveOptions, explicit bool) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if explicit {
		cfg, err = config.LoadFromFiles(opts.configFile)
	} else {
		cfg, err = config.LoadFromFile(opts.configFile)
	}
	if err != nil {
		return nil, err
	}

	config.ApplyFlagOverrides(cfg, opts.port, opts.stdio)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildServer wires catalog, client and dispatcher into an MCP server.
func buildServer(cfg *config.Config, logger *common.Logger) (*mcpserver.MCPServer, *catalog.Catalog, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tool catalog: %w", err)
	}

	av := cfg.AlphaVantage
	client := alphavantage.NewClient(av.BaseURL, av.APIKey, logger,
		alphavantage.WithTimeout(av.TimeoutDuration()),
		alphavantage.WithMaxConcurrency(av.MaxConcurrency),
		alphavantage.WithMaxResponseSize(int64(av.MaxResponseMB)<<20),
		alphavantage.WithEntitlement(av.Entitlement),
	)

	d := dispatch.New(cat, client, logger)
	return mcp.NewServer(cfg.Server.Name, common.GetVersion(), d, logger), cat, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := common.NewLoggerFromConfig(cfg.Logging)

	mcpSrv, cat, err := buildServer(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().
		Str("version", common.GetVersion()).
		Str("transport", cfg.Server.Transport).
		Int("tools", cat.Len()).
		Bool("debug", cfg.Debug).
		Msg("configuration loaded")

	if cfg.Server.Transport == config.TransportStdio {
		// Stdio transport: stdin/stdout carry JSON-RPC, logs go to stderr.
		return mcpserver.ServeStdio(mcpSrv)
	}

	srv := server.New(cfg.Server.Port, mcp.NewHandler(mcpSrv, logger), cat, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return errors.New("server stopped unexpectedly")
	case <-sigCtx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
