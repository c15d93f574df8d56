package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/alphavantage-mcp/internal/catalog"
	"github.com/bobmcallan/alphavantage-mcp/internal/common"
)

// newRootCmd builds the CLI. Commands are built fresh each call so tests can
// run them in isolation.
func newRootCmd() *cobra.Command {
	common.LoadVersionFromFile()

	root := &cobra.Command{
		Use:           "alphavantage-mcp",
		Short:         "Alpha Vantage market data over the Model Context Protocol",
		Long:          "alphavantage-mcp exposes Alpha Vantage market data endpoints as MCP tools over stdio or streamable HTTP.",
		Version:       common.GetFullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newToolsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "alphavantage-mcp %s (catalog v%s, %d tools)\n",
				common.GetFullVersion(), cat.Version(), cat.Len())
			return nil
		},
	}
}
