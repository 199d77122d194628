package main

import (
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/sqlport/pkg/catalog"
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
)

func (a *app) schemaCommand() *cobra.Command {
	var (
		conn     connFlags
		query    string
		useRegex bool
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Browse the schemas, tables and columns of a database",
		Long: `Print the catalog of a database as a tree. With --query only items whose
name matches, and their parents, are shown. Matching is a case-insensitive
substring test, or a regular expression with --regex.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := conn.params(cmd, a)
			if err != nil {
				return err
			}
			match, err := catalog.NewMatcher(query, useRegex)
			if err != nil {
				return err
			}
			entries, err := registry.Catalog(cmd.Context(), params)
			if err != nil {
				return err
			}
			return catalog.Build(entries).Filter(match).Print(cmd.OutOrStdout())
		},
	}
	conn.register(cmd)
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only show items matching this text")
	cmd.Flags().BoolVar(&useRegex, "regex", false, "Treat --query as a regular expression")
	return cmd
}
