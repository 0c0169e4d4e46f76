package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/internal/config"
	"github.com/effectus/schemadraft/internal/logging"
)

// globalOptions are the flags shared by every command
type globalOptions struct {
	configPath string
	pluginID   string
	logLevel   string
	logFormat  string
	sourceType string
	sourcePath string
	sourceOpts map[string]string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "schemadraft",
		Short: "Inspect and edit content-type builder schemas",
		Long: `schemadraft loads the component and content-type catalogs of a
content-type builder from a catalog source, resolves builder routes against
them and applies draft edits the way the builder UI does.

Catalog sources:
- file: a directory of components/content-types documents or one bundle
- http: the builder's REST endpoints
- postgres, sql, redis, s3: stored catalogs`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (yaml or json)")
	flags.StringVar(&opts.pluginID, "plugin-id", config.DefaultPluginID, "Plugin segment of builder routes")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", logging.FormatConsole, "Log format (console, json)")
	flags.StringVar(&opts.sourceType, "source-type", "", "Catalog source type, overrides the config file")
	flags.StringVar(&opts.sourcePath, "source-path", "", "Path for file sources")
	flags.StringToStringVar(&opts.sourceOpts, "source-opt", nil, "Extra source config as key=value")

	root.AddCommand(newSourcesCmd())
	root.AddCommand(newCatalogCmd(opts))
	root.AddCommand(newDraftCmd(opts))
	return root
}

// resolveConfig loads the config file, if any, and lets explicitly set
// flags override it
func resolveConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("plugin-id") {
		cfg.PluginID = opts.pluginID
	}
	if changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if changed("source-type") {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		cfg.Source = adapters.SourceConfig{
			Name:    opts.sourceType,
			Type:    opts.sourceType,
			Config:  map[string]interface{}{},
			BaseDir: wd,
		}
	}
	if changed("source-path") {
		if cfg.Source.Config == nil {
			cfg.Source.Config = map[string]interface{}{}
		}
		cfg.Source.Config["path"] = opts.sourcePath
	}
	for key, value := range opts.sourceOpts {
		if cfg.Source.Config == nil {
			cfg.Source.Config = map[string]interface{}{}
		}
		cfg.Source.Config[key] = value
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Source.Type == "" {
		return nil, fmt.Errorf("no catalog source configured (use --config or --source-type)")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}
