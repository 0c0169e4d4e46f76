package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/effectus/schemadraft/internal/sources"
)

func newSourcesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the catalog source types and their config keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := sources.Describe()
			if format != formatTable {
				return writeOutput(cmd.OutOrStdout(), format, infos)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tDESCRIPTION\tKEYS")
			for _, info := range infos {
				keys := make([]string, 0, len(info.ConfigSchema.Properties))
				for key := range info.ConfigSchema.Properties {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				fmt.Fprintf(w, "%s\t%s\t%s\n", info.Type, info.ConfigSchema.Description, strings.Join(keys, ","))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format (table, json, yaml)")
	return cmd
}
