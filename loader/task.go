package loader

import "context"

// Task is a load running in the background
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start runs Load on its own goroutine. The task's context derives from
// ctx; Cancel tears it down.
func (o *Orchestrator) Start(ctx context.Context) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer cancel()
		t.err = o.Load(ctx)
	}()
	return t
}

// Cancel stops the load. Results that arrive afterwards are discarded.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed when the load has returned
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the load returns or ctx is done
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the load outcome, or nil while it is still running
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}
