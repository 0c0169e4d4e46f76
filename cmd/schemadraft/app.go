package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/builder"
	"github.com/effectus/schemadraft/internal/config"
	"github.com/effectus/schemadraft/internal/sources"
	"github.com/effectus/schemadraft/resolver"
)

// app holds what a command needs to open builder sessions
type app struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	source adapters.CatalogSource
}

func newApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	source, err := sources.Open(cfg.Source)
	if err != nil {
		return nil, err
	}
	logger.Debugw("catalog source opened", "type", cfg.Source.Type, "name", cfg.Source.Name)
	return &app{cfg: cfg, logger: logger, source: source}, nil
}

// open starts a session on nav and waits for its catalogs
func (a *app) open(ctx context.Context, nav resolver.NavContext) (*builder.Session, builder.Outcome, error) {
	session, err := builder.Open(ctx, builder.Options{
		PluginID: a.cfg.PluginID,
		Source:   a.source,
		Logger:   a.logger,
		Nav:      nav,
	})
	if err != nil {
		return nil, builder.Outcome{}, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout())
	defer cancel()
	outcome, err := session.WaitLoaded(waitCtx)
	if err != nil {
		session.Close()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, builder.Outcome{}, fmt.Errorf("catalog load timed out after %s", a.cfg.Timeout())
		}
		return nil, builder.Outcome{}, fmt.Errorf("loading catalogs: %w", err)
	}
	return session, outcome, nil
}

func (a *app) Close() {
	if err := a.source.Close(); err != nil {
		a.logger.Warnw("closing catalog source", "error", err)
	}
	_ = a.logger.Sync()
}
