package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/sqlport/pkg/config"
	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
)

func (a *app) profilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect connection profiles",
	}
	cmd.AddCommand(a.profilesListCommand(), a.profilesShowCommand(), a.profilesExportCommand())
	return cmd
}

func (a *app) profilesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tree, err := a.profiles()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var walk func(id string, depth int) error
			walk = func(id string, depth int) error {
				fmt.Fprintf(out, "%s%s\n", strings.Repeat("    ", depth), id)
				children, err := tree.ChildrenOf(id)
				if err != nil {
					return err
				}
				for _, c := range children {
					if err := walk(c, depth+1); err != nil {
						return err
					}
				}
				return nil
			}
			for _, root := range tree.Roots() {
				if err := walk(root, 0); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) profilesShowCommand() *cobra.Command {
	var explain, secrets bool
	cmd := &cobra.Command{
		Use:   "show <profile>",
		Short: "Show the effective fields of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.profiles()
			if err != nil {
				return err
			}
			origins, err := tree.Explain(args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, o := range origins {
				value := o.Value
				if o.Field == core.FieldPassword && !secrets {
					value = "***"
				}
				value = strings.ReplaceAll(value, "\n", `\n`)
				if explain {
					fmt.Fprintf(tw, "%s\t%s\t(from %s)\n", o.Field, value, o.Origin)
				} else {
					fmt.Fprintf(tw, "%s\t%s\n", o.Field, value)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "Show which profile supplies each field")
	cmd.Flags().BoolVar(&secrets, "show-secrets", false, "Print passwords")
	return cmd
}

func (a *app) profilesExportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-hcl",
		Short: "Write all profiles as HCL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tree, err := a.profiles()
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return config.ExportProfilesHCL(cmd.OutOrStdout(), tree.Nodes())
			}
			f, err := os.Create(out) //nolint:gosec // user supplied output path
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, "failed to create file").WithDetail("file", out)
			}
			if err := config.ExportProfilesHCL(f, tree.Nodes()); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, "failed to write file").WithDetail("file", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "-", "Destination file")
	return cmd
}
