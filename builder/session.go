// Package builder binds a draft store, a catalog loader and the routing
// state of one schema builder session.
package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/effectus/schemadraft/draft"
	"github.com/effectus/schemadraft/loader"
	"github.com/effectus/schemadraft/resolver"
	"github.com/effectus/schemadraft/schema"
	"github.com/effectus/schemadraft/views"
)

// DefaultPluginID is the plugin segment of the builder routes
const DefaultPluginID = "content-type-builder"

var (
	// ErrSessionClosed is returned by operations on a closed session
	ErrSessionClosed = errors.New("builder session closed")

	// ErrLoadInProgress is returned by Retry while a load is running
	ErrLoadInProgress = errors.New("catalog load in progress")

	// ErrAlreadyLoaded is returned by Retry after a successful load
	ErrAlreadyLoaded = errors.New("catalogs already loaded")
)

// Options configures a session
type Options struct {
	PluginID string
	Source   loader.Fetcher
	Logger   *zap.SugaredLogger

	// Nav is the route the session starts on
	Nav resolver.NavContext
}

// Outcome reports what a navigation resolved to. Redirect is set when the
// route names no existing schema and the builder has to move on.
type Outcome struct {
	Nav          resolver.NavContext  `json:"nav" yaml:"nav"`
	Resolution   resolver.Resolution  `json:"resolution" yaml:"resolution"`
	Loading      bool                 `json:"loading" yaml:"loading"`
	Redirect     *resolver.NavContext `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	RedirectPath string               `json:"redirectPath,omitempty" yaml:"redirectPath,omitempty"`
}

// Session is one mounted schema builder
type Session struct {
	id     string
	routes resolver.Routes
	source loader.Fetcher
	logger *zap.SugaredLogger
	store  *draft.Store
	cache  *views.Cache
	// nav is written only from inside store derivations once Open returns
	nav atomic.Pointer[resolver.NavContext]

	ctx       context.Context
	cancel    context.CancelFunc
	storeDone chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	task *loader.Task
}

// Open starts the session's store and its catalog load. The session lives
// until Close or until ctx is done.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("catalog source is required")
	}
	pluginID := opts.PluginID
	if pluginID == "" {
		pluginID = DefaultPluginID
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	id := uuid.NewString()
	logger = logger.With("session", id)
	routes := resolver.NewRoutes(pluginID)
	sessionCtx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:        id,
		routes:    routes,
		source:    opts.Source,
		logger:    logger,
		store:     draft.NewStore(logger),
		cache:     views.NewCache(routes),
		ctx:       sessionCtx,
		cancel:    cancel,
		storeDone: make(chan struct{}),
	}
	nav := opts.Nav
	if nav.Kind == "" {
		nav.Kind = schema.KindContentType
	}
	s.nav.Store(&nav)

	go func() {
		defer close(s.storeDone)
		_ = s.store.Run(sessionCtx)
	}()
	s.startLoad()

	logger.Infow("session opened", "plugin", pluginID, "path", routes.Path(nav))
	return s, nil
}

func (s *Session) startLoad() {
	orchestrator := loader.New(s.source, s.store, loader.Options{
		Logger:    s.logger,
		AfterLoad: s.syncAfterLoad,
	})
	s.task = orchestrator.Start(s.ctx)
}

// syncAfterLoad seeds the draft for the route that is current once the
// catalogs are in
func (s *Session) syncAfterLoad(ctx context.Context) error {
	return s.store.Derive(ctx, func(state draft.State) draft.Command {
		record, ok := resolver.Record(s.Nav(), state)
		if !ok {
			return nil
		}
		return draft.SeedDraft{Record: record}
	})
}

// ID identifies the session in logs
func (s *Session) ID() string {
	return s.id
}

// Routes returns the session's route builder
func (s *Session) Routes() resolver.Routes {
	return s.routes
}

// Nav returns the current navigation context
func (s *Session) Nav() resolver.NavContext {
	return *s.nav.Load()
}

// IsInContentTypeView reports whether the current route is a content type
func (s *Session) IsInContentTypeView() bool {
	return s.Nav().IsContentTypeView()
}

// WaitLoaded blocks until the current load finishes and reports the
// outcome of the current route
func (s *Session) WaitLoaded(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	task := s.task
	s.mu.Unlock()

	if err := task.Wait(ctx); err != nil {
		return Outcome{}, err
	}
	return s.outcome(s.Nav(), s.store.Snapshot()), nil
}

// LoadErr returns the error of the last finished load
func (s *Session) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task.Err()
}

// Retry starts a new load after a failed one
func (s *Session) Retry(ctx context.Context) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.task.Done():
	default:
		return ErrLoadInProgress
	}
	if s.task.Err() == nil {
		return ErrAlreadyLoaded
	}
	s.logger.Infow("retrying catalog load", "previous_error", s.task.Err())
	s.startLoad()
	return nil
}

// Navigate moves the session to nav. When nav names an existing schema
// other than the previous one, the draft is reseeded from it. A change of
// category alone keeps the draft. If ctx is done before the store takes
// the navigation, the session stays where it was.
func (s *Session) Navigate(ctx context.Context, nav resolver.NavContext) (Outcome, error) {
	if s.ctx.Err() != nil {
		return Outcome{}, ErrSessionClosed
	}
	var out Outcome
	err := s.store.Derive(ctx, func(state draft.State) draft.Command {
		// runs in the store's writer, which owns s.nav
		changed := !s.Nav().SameEntity(nav)
		s.nav.Store(&nav)

		out = s.outcome(nav, state)
		if !out.Resolution.IsValid || (!changed && !state.IsLoadingForDataToBeSet) {
			return nil
		}
		record, _ := resolver.Record(nav, state)
		return draft.SeedDraft{Record: record}
	})
	if err != nil {
		return Outcome{}, s.mapErr(err)
	}

	if out.Redirect != nil {
		s.logger.Infow("route does not resolve", "path", s.routes.Path(nav), "redirect", out.RedirectPath)
	} else {
		s.logger.Debugw("navigated", "path", s.routes.Path(nav), "valid", out.Resolution.IsValid)
	}
	return out, nil
}

// NavigatePath parses path and navigates to it
func (s *Session) NavigatePath(ctx context.Context, path string) (Outcome, error) {
	return s.Navigate(ctx, s.routes.Parse(path))
}

func (s *Session) outcome(nav resolver.NavContext, state draft.State) Outcome {
	out := Outcome{
		Nav:        nav,
		Resolution: resolver.Resolve(nav, state),
		Loading:    state.IsLoading,
	}
	if resolver.ShouldRedirect(nav, state) {
		if target, ok := resolver.RedirectTarget(state); ok {
			out.Redirect = &target
			out.RedirectPath = s.routes.Path(target)
		}
	}
	return out
}

// SetModifiedData reseeds the draft from the catalog entry of the current
// route, discarding unsaved edits. It does nothing when the route does not
// resolve.
func (s *Session) SetModifiedData(ctx context.Context) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	err := s.store.Derive(ctx, func(state draft.State) draft.Command {
		record, ok := resolver.Record(s.Nav(), state)
		if !ok {
			return nil
		}
		return draft.SeedDraft{Record: record}
	})
	return s.mapErr(err)
}

// AddAttribute inserts or replaces an attribute of the draft
func (s *Session) AddAttribute(ctx context.Context, def schema.AttributeDefinition) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	return s.mapErr(s.store.Dispatch(ctx, draft.AddAttribute{Attribute: def}))
}

// CreateSchema adds a new schema to its catalog and opens it. It returns
// the route of the new schema, which becomes the session's route.
func (s *Session) CreateSchema(ctx context.Context, data schema.Schema, kind schema.Kind, uid, category string) (resolver.NavContext, error) {
	if s.ctx.Err() != nil {
		return resolver.NavContext{}, ErrSessionClosed
	}
	cmd := draft.CreateSchema{Data: data, Kind: kind, UID: uid, Category: category}
	target := resolver.ContentType(uid)
	if kind == schema.KindComponent {
		target = resolver.Component(category, uid)
	}

	// Apply is pure, so a dry run inside the writer tells whether the
	// command will be accepted before the route moves
	var rejected error
	err := s.store.Derive(ctx, func(state draft.State) draft.Command {
		if _, rejected = draft.Apply(state, cmd); rejected != nil {
			return nil
		}
		s.nav.Store(&target)
		return cmd
	})
	if err == nil {
		err = rejected
	}
	if err != nil {
		return resolver.NavContext{}, s.mapErr(err)
	}
	s.logger.Infow("schema created", "kind", kind, "uid", uid)
	return target, nil
}

// Snapshot returns a private copy of the current state
func (s *Session) Snapshot() draft.State {
	return s.store.Snapshot().Clone()
}

// SortedContentTypes returns the content-type navigation list
func (s *Session) SortedContentTypes() []views.NavItem {
	return s.cache.SortedContentTypes(s.store.Snapshot())
}

// ComponentCategories returns the component navigation grouped by category
func (s *Session) ComponentCategories() []views.CategoryGroup {
	return views.ComponentCategories(s.store.Snapshot().Components, s.routes)
}

// Draft returns the form payload for the current route
func (s *Session) Draft() views.Draft {
	return views.DraftPayload(s.store.Snapshot(), s.Nav())
}

// Close cancels any running load and stops the store. Unsaved edits are
// discarded. A fetch that ignores cancellation is not waited for; its
// result can no longer reach the store.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.storeDone
		s.logger.Infow("session closed")
	})
	return nil
}

func (s *Session) mapErr(err error) error {
	if errors.Is(err, draft.ErrStoreClosed) {
		return ErrSessionClosed
	}
	return err
}
