package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/effectus/schemadraft/builder"
	"github.com/effectus/schemadraft/resolver"
	"github.com/effectus/schemadraft/views"
)

// draftReport is what the draft commands print
type draftReport struct {
	Path     string          `json:"path" yaml:"path"`
	Outcome  builder.Outcome `json:"outcome" yaml:"outcome"`
	Draft    views.Draft     `json:"draft" yaml:"draft"`
	Redirect bool            `json:"redirected" yaml:"redirected"`
}

func newDraftCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Open a builder route and edit its draft",
	}
	cmd.AddCommand(newDraftOpenCmd(opts))
	cmd.AddCommand(newDraftApplyCmd(opts))
	return cmd
}

func newDraftOpenCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "open <route>",
		Short: "Resolve a route and print its draft",
		Long: `Resolve a builder route such as
/plugins/content-type-builder/content-types/application::article.article
and print the draft it opens. A content-type route that names no schema is
redirected to the first content type.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := openDraft(cmd.Context(), a, args[0], nil)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, report)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatYAML, "Output format (json, yaml)")
	return cmd
}

func newDraftApplyCmd(opts *globalOptions) *cobra.Command {
	var (
		scriptPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "apply <route>",
		Short: "Apply an edit script to the draft of a route",
		Long: `Open a route, apply the steps of an edit script and print the resulting
draft. Steps are add_attribute, create_schema, set_modified_data and
navigate. Nothing is written back to the catalog source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := LoadScript(scriptPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := openDraft(cmd.Context(), a, args[0], script)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, report)
		},
	}

	cmd.Flags().StringVar(&scriptPath, "script", "", "Edit script (yaml or json)")
	cmd.Flags().StringVarP(&format, "output", "o", formatYAML, "Output format (json, yaml)")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}

// openDraft opens path, follows a redirect and runs script when given
func openDraft(ctx context.Context, a *app, path string, script *Script) (draftReport, error) {
	routes := resolver.NewRoutes(a.cfg.PluginID)
	session, outcome, err := a.open(ctx, routes.Parse(path))
	if err != nil {
		return draftReport{}, err
	}
	defer session.Close()

	redirected := false
	if outcome.Redirect != nil {
		a.logger.Infow("following redirect", "from", path, "to", outcome.RedirectPath)
		outcome, err = session.Navigate(ctx, *outcome.Redirect)
		if err != nil {
			return draftReport{}, err
		}
		redirected = true
	}

	if script != nil {
		if err := script.Run(ctx, session); err != nil {
			return draftReport{}, err
		}
		outcome.Nav = session.Nav()
		outcome.Resolution = resolver.Resolve(outcome.Nav, session.Snapshot())
		outcome.Redirect, outcome.RedirectPath = nil, ""
	}

	return draftReport{
		Path:     session.Routes().Path(session.Nav()),
		Outcome:  outcome,
		Draft:    session.Draft(),
		Redirect: redirected,
	}, nil
}
