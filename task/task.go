// Package task runs event streams in the background and keeps them
// addressable by id. A Registry is an explicit object injected where lookup
// is needed; there is no package level task table.
package task

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/logging"
)

// ErrTooManyTasks is returned by Start when the concurrency limit is reached.
var ErrTooManyTasks = errors.New("too many concurrent tasks")

// Status is the lifecycle state of a Task.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// RunFunc produces the event stream of a task. ctx is canceled when the task is.
type RunFunc func(ctx context.Context) iter.Seq2[core.Event, error]

// Task is one background run. Events is closed when the run ends; Err then
// reports its outcome.
type Task struct {
	id     string
	cancel context.CancelFunc
	events chan core.Event
	done   chan struct{}

	mu     sync.RWMutex
	status Status
	err    error
}

// ID returns the task id.
func (t *Task) ID() string { return t.id }

// Events streams the task's events in order.
func (t *Task) Events() <-chan core.Event { return t.events }

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel stops the task. It is safe to call more than once.
func (t *Task) Cancel() { t.cancel() }

// Status returns the current lifecycle state.
func (t *Task) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.status
}

// Err returns the terminal error of a finished task, or nil.
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.err
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) finish(status Status, err error) {
	t.mu.Lock()
	t.status = status
	t.err = err
	t.mu.Unlock()

	close(t.done)
}

// Options configures a Registry.
type Options struct {
	// MaxConcurrent limits the number of running tasks. 0 means unlimited.
	MaxConcurrent int
	// EventBufferSize sets the buffer of each task's event channel.
	EventBufferSize int
	Logger          logging.Logger
}

// Registry owns the mapping from task id to Task. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*Task
	sem    *semaphore.Weighted
	buffer int
	logger logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{MaxConcurrent: 10, EventBufferSize: 100}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Registry{
		tasks:  make(map[string]*Task),
		buffer: opts.EventBufferSize,
		logger: logging.OrNoOp(opts.Logger),
	}

	if opts.MaxConcurrent > 0 {
		r.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}

	return r
}

// Start runs fn on a new goroutine under id (generated when empty) and
// registers the task. The task keeps running until its stream ends, it is
// canceled or ctx is done.
func (r *Registry) Start(ctx context.Context, id string, fn RunFunc) (*Task, error) {
	if id == "" {
		id = core.NewID()
	}

	r.mu.Lock()
	if prev, ok := r.tasks[id]; ok && prev.Status() == StatusRunning {
		r.mu.Unlock()
		return nil, fmt.Errorf("task %s: %w", id, core.ErrAgentBusy)
	}

	if r.sem != nil && !r.sem.TryAcquire(1) {
		r.mu.Unlock()
		return nil, ErrTooManyTasks
	}

	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{
		id:     id,
		cancel: cancel,
		events: make(chan core.Event, r.buffer),
		done:   make(chan struct{}),
		status: StatusRunning,
	}
	r.tasks[id] = t
	r.mu.Unlock()

	r.logger.Debug("task.started", "task.id", id)

	go r.run(taskCtx, t, fn)

	return t, nil
}

func (r *Registry) run(ctx context.Context, t *Task, fn RunFunc) {
	status, err := StatusCompleted, error(nil)

	defer func() {
		if rec := recover(); rec != nil {
			status, err = StatusFailed, fmt.Errorf("task %s: panic: %v", t.id, rec)
		}

		close(t.events)
		t.cancel()

		if r.sem != nil {
			r.sem.Release(1)
		}

		t.finish(status, err)
		r.logger.Debug("task.finished", "task.id", t.id, "task.status", string(status))
	}()

	for ev, runErr := range fn(ctx) {
		if runErr != nil {
			status, err = StatusFailed, runErr
			if ctx.Err() != nil {
				status = StatusCanceled
			}

			return
		}

		select {
		case t.events <- ev:
		case <-ctx.Done():
			status, err = StatusCanceled, ctx.Err()
			return
		}
	}

	if ctx.Err() != nil {
		status, err = StatusCanceled, ctx.Err()
	}
}

// Get returns the task registered under id.
func (r *Registry) Get(id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}

	return t, nil
}

// List returns all registered tasks.
func (r *Registry) List() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}

	return out
}

// Cancel cancels the task registered under id.
func (r *Registry) Cancel(id string) error {
	t, err := r.Get(id)
	if err != nil {
		return err
	}

	t.Cancel()

	return nil
}

// Remove forgets a finished task. A running task is canceled first.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	delete(r.tasks, id)
	r.mu.Unlock()

	if ok {
		t.Cancel()
	}
}

// Shutdown cancels every task and waits for all of them to finish or ctx to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, t := range r.List() {
		t.Cancel()

		g.Go(func() error {
			select {
			case <-t.Done():
				return nil
			case <-gctx.Done():
				return fmt.Errorf("task %s: %w", t.ID(), gctx.Err())
			}
		})
	}

	return g.Wait()
}
