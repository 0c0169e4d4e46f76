// Package loader fetches both schema catalogs for a builder session and
// hands them to the draft store in one step.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/effectus/schemadraft/draft"
	"github.com/effectus/schemadraft/schema"
)

// ErrAlreadyStarted is returned when Load is called a second time on the
// same orchestrator
var ErrAlreadyStarted = errors.New("catalog load already started")

// Fetcher returns the records of one catalog kind
type Fetcher interface {
	FetchCatalog(ctx context.Context, kind schema.Kind) ([]schema.Record, error)
}

// Dispatcher receives the loaded catalogs
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd draft.Command) error
}

// TransportError reports a failed catalog fetch
type TransportError struct {
	Kind schema.Kind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s catalog: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Options tunes an orchestrator
type Options struct {
	Logger *zap.SugaredLogger

	// AfterLoad runs once the catalogs have been dispatched. Its error is
	// returned from Load.
	AfterLoad func(ctx context.Context) error
}

// Orchestrator performs the catalog load of one mount
type Orchestrator struct {
	source    Fetcher
	store     Dispatcher
	logger    *zap.SugaredLogger
	afterLoad func(ctx context.Context) error
	started   atomic.Bool
}

// New creates an orchestrator that reads from source and writes to store
func New(source Fetcher, store Dispatcher, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Orchestrator{
		source:    source,
		store:     store,
		logger:    logger,
		afterLoad: opts.AfterLoad,
	}
}

// Load fetches components and content types concurrently and dispatches a
// single DataLoaded when both succeed. A failed fetch cancels the other
// one and is returned as a *TransportError. Once ctx is done nothing is
// dispatched, whatever the fetches return.
func (o *Orchestrator) Load(ctx context.Context) error {
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	start := time.Now()
	o.logger.Debugw("loading catalogs")

	var components, contentTypes []schema.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := o.fetch(gctx, schema.KindComponent)
		components = records
		return err
	})
	g.Go(func() error {
		records, err := o.fetch(gctx, schema.KindContentType)
		contentTypes = records
		return err
	})
	err := g.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		o.logger.Debugw("catalog load cancelled", "duration", time.Since(start))
		return ctxErr
	}
	if err != nil {
		o.logger.Warnw("catalog load failed", "error", err, "duration", time.Since(start))
		return err
	}

	loaded := draft.DataLoaded{
		Components:   schema.Normalize(components),
		ContentTypes: schema.Normalize(contentTypes),
	}
	if err := o.store.Dispatch(ctx, loaded); err != nil {
		return fmt.Errorf("dispatch loaded catalogs: %w", err)
	}
	o.logger.Infow("catalogs loaded",
		"components", len(loaded.Components),
		"content_types", len(loaded.ContentTypes),
		"duration", time.Since(start))

	if o.afterLoad != nil {
		if err := o.afterLoad(ctx); err != nil {
			return fmt.Errorf("after load: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) fetch(ctx context.Context, kind schema.Kind) ([]schema.Record, error) {
	records, err := o.source.FetchCatalog(ctx, kind)
	if err != nil {
		return nil, &TransportError{Kind: kind, Err: err}
	}
	return records, nil
}
