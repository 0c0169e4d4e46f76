package draft

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"
)

// Deriver computes a command from the current state. Returning nil leaves
// the state as it is.
type Deriver func(State) Command

type request struct {
	ctx    context.Context
	cmd    Command
	derive Deriver
	reply  chan error
}

// Store serializes every change to a session's State through a single
// writer goroutine (Run). Readers take snapshots; a snapshot is never
// modified after it has been published.
type Store struct {
	logger   *zap.SugaredLogger
	current  atomic.Pointer[State]
	requests chan request
	stopped  chan struct{}
	running  atomic.Bool
}

// NewStore creates a store holding InitialState. Run must be started
// before commands can be dispatched.
func NewStore(logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Store{
		logger:   logger,
		requests: make(chan request),
		stopped:  make(chan struct{}),
	}
	initial := InitialState()
	s.current.Store(&initial)
	return s
}

// Run applies dispatched commands in arrival order until ctx is done
func (s *Store) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("draft store already running")
	}
	defer close(s.stopped)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.requests:
			req.reply <- s.handle(req)
		}
	}
}

// Snapshot returns the most recently published state. Callers must treat
// it as read-only; use State.Clone for a private copy.
func (s *Store) Snapshot() State {
	return *s.current.Load()
}

// Dispatch applies cmd and waits for the outcome. A command whose context
// is cancelled before the writer reaches it is discarded.
func (s *Store) Dispatch(ctx context.Context, cmd Command) error {
	if cmd == nil {
		return nil
	}
	return s.send(ctx, request{ctx: ctx, cmd: cmd})
}

// Derive runs fn inside the writer against the current state and applies
// the command it returns. Decisions that must observe every previously
// dispatched command go through here.
func (s *Store) Derive(ctx context.Context, fn Deriver) error {
	if fn == nil {
		return nil
	}
	return s.send(ctx, request{ctx: ctx, derive: fn})
}

func (s *Store) send(ctx context.Context, req request) error {
	if ctx == nil {
		ctx = context.Background()
		req.ctx = ctx
	}
	req.reply = make(chan error, 1)

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStoreClosed
	}
	return <-req.reply
}

func (s *Store) handle(req request) error {
	if err := req.ctx.Err(); err != nil {
		s.logger.Debugw("discarding cancelled command", "error", err)
		return err
	}

	current := *s.current.Load()
	cmd := req.cmd
	if req.derive != nil {
		cmd = req.derive(current)
		if cmd == nil {
			return nil
		}
	}

	next, err := Apply(current, cmd)
	if err != nil {
		s.logger.Debugw("command rejected", "command", commandName(cmd), "error", err)
		return err
	}
	s.current.Store(&next)
	s.logger.Debugw("command applied", "command", commandName(cmd))
	return nil
}

// commandName guards against typed nil commands, which Apply accepts as
// no-ops but whose value-receiver methods cannot be called
func commandName(cmd Command) string {
	if v := reflect.ValueOf(cmd); v.Kind() == reflect.Pointer && v.IsNil() {
		return "nil"
	}
	return cmd.CommandName()
}
