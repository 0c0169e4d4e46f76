package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/effectus/schemadraft/adapters/file"
	"github.com/effectus/schemadraft/builder"
	"github.com/effectus/schemadraft/internal/sources"
	"github.com/effectus/schemadraft/resolver"
	"github.com/effectus/schemadraft/schema"
	"github.com/effectus/schemadraft/views"
)

// catalogListing is the navigation view of both catalogs
type catalogListing struct {
	ContentTypes []views.NavItem       `json:"content_types,omitempty" yaml:"content_types,omitempty"`
	Components   []views.CategoryGroup `json:"components,omitempty" yaml:"components,omitempty"`
}

func newCatalogCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the schema catalogs of a source",
	}
	cmd.AddCommand(newCatalogListCmd(opts))
	cmd.AddCommand(newCatalogWatchCmd(opts))
	cmd.AddCommand(newCatalogExportCmd(opts))
	return cmd
}

func newCatalogListCmd(opts *globalOptions) *cobra.Command {
	var (
		kind   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List content types sorted by name and components by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseKindFilter(kind)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			return printCatalog(cmd.Context(), a, cmd.OutOrStdout(), filter, format)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only list one kind (content-type, component)")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format (table, json, yaml)")
	return cmd
}

func newCatalogWatchCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the catalogs again whenever the source changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			watcher, err := sources.OpenWatcher(a.source, a.cfg.Notify)
			if err != nil {
				return fmt.Errorf("watching %s source: %w", a.cfg.Source.Type, err)
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if err := printCatalog(ctx, a, out, "", format); err != nil {
				return err
			}
			err = watcher.Watch(ctx, a.logger, func() {
				if err := printCatalog(ctx, a, out, "", format); err != nil {
					a.logger.Errorw("reloading catalog", "error", err)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format (table, json, yaml)")
	return cmd
}

func newCatalogExportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write both catalogs of the source to a directory for the file source",
		Long: `Load both catalogs from the configured source and write them to
<dir>/components.json and <dir>/content-types.json, the layout the file
source reads.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			session, _, err := a.open(cmd.Context(), resolver.NavContext{Kind: schema.KindContentType})
			if err != nil {
				return err
			}
			defer session.Close()

			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}
			state := session.Snapshot()
			for _, kind := range schema.Kinds() {
				catalog, _ := state.Catalog(kind)
				if err := file.WriteCatalog(dir, kind, catalog.Flatten()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d %s records\n", len(catalog), kind)
			}
			return nil
		},
	}
}

func parseKindFilter(value string) (schema.Kind, error) {
	if value == "" {
		return "", nil
	}
	return schema.ParseKind(value)
}

func printCatalog(ctx context.Context, a *app, w io.Writer, kind schema.Kind, format string) error {
	session, _, err := a.open(ctx, resolver.NavContext{Kind: schema.KindContentType})
	if err != nil {
		return err
	}
	defer session.Close()

	listing := listCatalog(session, kind)
	if format != formatTable {
		return writeOutput(w, format, listing)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tUID\tNAME\tROUTE")
	for _, item := range listing.ContentTypes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", schema.KindContentType, item.UID, item.Name, item.To)
	}
	for _, group := range listing.Components {
		for _, item := range group.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", schema.KindComponent, item.UID, item.Name, item.To)
		}
	}
	return tw.Flush()
}

func listCatalog(session *builder.Session, kind schema.Kind) catalogListing {
	var listing catalogListing
	if kind == "" || kind == schema.KindContentType {
		listing.ContentTypes = session.SortedContentTypes()
	}
	if kind == "" || kind == schema.KindComponent {
		listing.Components = session.ComponentCategories()
	}
	return listing
}
