package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
)

func (a *app) formatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List database drivers and output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Drivers:")
			for _, d := range registry.ListSources() {
				fmt.Fprintf(out, "  - %s\n", d)
			}

			fmt.Fprintln(out, "\nFormats:")
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "  NAME\tMODE\tON FAILURE\tMAX ROWS\tLOSSLESS")
			for _, name := range registry.ListSinks() {
				sink, err := registry.CreateSink(name, core.Options{})
				if err != nil {
					fmt.Fprintf(tw, "  %s\t?\t?\t?\t?\n", name)
					continue
				}
				caps := sink.Capabilities()
				maxRows := "-"
				if caps.MaxRows > 0 {
					maxRows = fmt.Sprint(caps.MaxRows)
				}
				fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%t\n", name, caps.Mode, caps.Truncation, maxRows, caps.Lossless)
			}
			return tw.Flush()
		},
	}
}
