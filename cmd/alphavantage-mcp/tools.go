package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/alphavantage-mcp/internal/catalog"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools in the catalog and the upstream functions they call",
		RunE:  runTools,
	}
}

func runTools(cmd *cobra.Command, _ []string) error {
	cat, err := catalog.Default()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tFAMILY\tFUNCTIONS\tPRESETS")
	for _, t := range cat.Tools() {
		functions := make([]string, 0, len(t.Endpoints))
		seen := make(map[string]bool)
		for _, e := range t.Endpoints {
			if !seen[e.Function] {
				seen[e.Function] = true
				functions = append(functions, e.Function)
			}
		}
		presets := "-"
		if names := t.PresetNames(); len(names) > 0 {
			presets = strings.Join(names, ",")
		}
		kind := string(t.Family)
		if t.Pack {
			kind += " (pack)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, kind, strings.Join(functions, ","), presets)
	}
	return w.Flush()
}
