package flow

import (
	"context"
	"iter"
	"sync"

	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/logging"
)

// Planner creates and revises plans.
type Planner interface {
	CreatePlan(ctx context.Context, msg core.Message) iter.Seq2[core.Event, error]
	UpdatePlan(ctx context.Context, plan *core.Plan, step *core.Step) iter.Seq2[core.Event, error]
}

// Executor executes plan steps and summarizes finished tasks.
type Executor interface {
	ExecuteStep(ctx context.Context, plan *core.Plan, step *core.Step, msg core.Message) iter.Seq2[core.Event, error]
	Summarize(ctx context.Context) iter.Seq2[core.Event, error]
	CompactMemory() int
}

// Options configures a PlanAct flow.
type Options struct {
	SessionID string            // defaults to a generated id
	Store     core.SessionStore // optional event recorder
	Logger    logging.Logger
}

// PlanAct runs the plan, execute, update, summarize cycle.
//
// The flow owns the current plan and is its only writer. Run may not be
// called concurrently; a second call while one is active yields
// core.ErrAgentBusy. When the executor asks the user a question the flow
// enters StateWaiting and the next Run resumes the paused step with the new
// message as the answer. Abandoning a stream early pauses the flow the same
// way.
type PlanAct struct {
	planner   Planner
	executor  Executor
	store     core.SessionStore
	sessionID string
	logger    logging.Logger

	mu      sync.Mutex
	running bool
	state   State
	plan    *core.Plan
	request core.Message
}

var _ Flow = (*PlanAct)(nil)

// NewPlanAct creates an idle flow over planner and executor.
func NewPlanAct(planner Planner, executor Executor, optFns ...func(o *Options)) *PlanAct {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SessionID == "" {
		opts.SessionID = core.NewID()
	}

	return &PlanAct{
		planner:   planner,
		executor:  executor,
		store:     opts.Store,
		sessionID: opts.SessionID,
		logger:    logging.With(logging.OrNoOp(opts.Logger), "flow.name", "planact", "session.id", opts.SessionID),
		state:     StateIdle,
	}
}

// SessionID returns the id under which events are recorded.
func (f *PlanAct) SessionID() string { return f.sessionID }

// State implements Flow.
func (f *PlanAct) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

// Plan returns a copy of the current plan, or nil before planning. Steps are
// mutated by an active Run, so call it between runs.
func (f *PlanAct) Plan() *core.Plan {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.plan.Clone()
}

// Run implements Flow.
func (f *PlanAct) Run(ctx context.Context, msg core.Message) iter.Seq2[core.Event, error] {
	return func(yield func(core.Event, error) bool) {
		if err := f.acquire(); err != nil {
			yield(nil, err)
			return
		}
		defer f.release()

		r := &run{flow: f, ctx: ctx, yield: yield}
		r.record(core.NewUserMessageEvent(msg.Message, core.FilesFromPaths(msg.Attachments)...))
		r.status(core.SessionRunning)

		stepMsg := msg

		if f.State().Resumable() && f.plan != nil {
			f.logger.Info("flow.resumed", "plan.id", f.plan.ID)

			// The message answers the paused step only; a fresh step runs on the request.
			if next := f.plan.NextStep(); next == nil || next.Status != core.StatusRunning {
				stepMsg = f.request
			}
		} else {
			f.request = msg
			if !r.createPlan(msg) {
				return
			}
		}

		for {
			step := f.plan.NextStep()
			if step == nil {
				break
			}

			f.setState(StateExecuting)

			waiting := false

			for ev, err := range f.executor.ExecuteStep(ctx, f.plan, step, stepMsg) {
				if err != nil {
					r.fail(err)
					return
				}

				if _, ok := ev.(core.WaitEvent); ok {
					waiting = true
				}

				if !r.emit(ev) {
					return
				}
			}

			if waiting {
				f.setState(StateWaiting)
				r.status(core.SessionWaiting)
				f.logger.Info("flow.waiting", "step.id", step.ID)

				return
			}

			f.executor.CompactMemory()
			f.setState(StateUpdating)

			for ev, err := range f.planner.UpdatePlan(ctx, f.plan, step) {
				if err != nil {
					r.fail(err)
					return
				}

				if !r.emit(ev) {
					return
				}
			}

			stepMsg = f.request
		}

		f.setState(StateSummarizing)
		f.plan.Status = core.StatusCompleted

		if !r.emit(core.NewPlanEvent(f.plan, core.PlanCompleted)) {
			return
		}

		for ev, err := range f.executor.Summarize(ctx) {
			if err != nil {
				r.fail(err)
				return
			}

			if !r.emit(ev) {
				return
			}
		}

		f.setState(StateCompleted)
		r.status(core.SessionCompleted)
		f.logger.Info("flow.completed", "plan.id", f.plan.ID, "plan.steps", len(f.plan.Steps))

		r.emit(core.NewDoneEvent())
	}
}

// run carries the per-invocation plumbing of Run.
type run struct {
	flow  *PlanAct
	ctx   context.Context
	yield func(core.Event, error) bool
}

// createPlan drives the planner until a plan exists. It reports false when
// the run must stop.
func (r *run) createPlan(msg core.Message) bool {
	f := r.flow
	f.setState(StatePlanning)

	f.mu.Lock()
	f.plan = nil
	f.mu.Unlock()

	for ev, err := range f.planner.CreatePlan(r.ctx, msg) {
		if err != nil {
			r.fail(err)
			return false
		}

		pe, ok := ev.(core.PlanEvent)
		if !ok || pe.Status != core.PlanCreated {
			if !r.emit(ev) {
				return false
			}

			continue
		}

		plan := pe.Plan.Clone()
		plan.Status = core.StatusRunning

		f.mu.Lock()
		f.plan = plan
		f.mu.Unlock()

		f.logger.Info("flow.plan.created", "plan.id", plan.ID, "plan.steps", len(plan.Steps))

		if !r.emit(pe) || !r.emit(core.NewTitleEvent(plan.Title)) {
			return false
		}
	}

	if f.plan == nil {
		f.setState(StateFailed)
		r.status(core.SessionFailed)
		f.logger.Warn("flow.plan.missing")

		return false
	}

	return true
}

// emit records ev and forwards it. A consumer that stops listening pauses the flow.
func (r *run) emit(ev core.Event) bool {
	r.record(ev)

	if r.yield(ev, nil) {
		return true
	}

	f := r.flow
	if f.plan != nil && !f.plan.Done() {
		f.setState(StateWaiting)
		r.status(core.SessionWaiting)
	}

	return false
}

func (r *run) fail(err error) {
	f := r.flow

	f.setState(StateFailed)

	if f.plan != nil {
		f.plan.Status = core.StatusFailed
		f.plan.Error = err.Error()
	}

	f.logger.Error("flow.failed", "error", err)
	r.record(core.NewErrorEvent(err.Error()))
	r.status(core.SessionFailed)
	r.yield(nil, err)
}

func (r *run) record(ev core.Event) {
	f := r.flow
	if f.store == nil {
		return
	}

	if err := f.store.AppendEvent(context.WithoutCancel(r.ctx), f.sessionID, ev); err != nil {
		f.logger.Warn("flow.session.append_failed", "event.type", string(ev.Meta().Type), "error", err)
	}
}

func (r *run) status(s core.SessionStatus) {
	f := r.flow
	if f.store == nil {
		return
	}

	if err := f.store.UpdateStatus(context.WithoutCancel(r.ctx), f.sessionID, s); err != nil {
		f.logger.Warn("flow.session.status_failed", "session.status", string(s), "error", err)
	}
}

func (f *PlanAct) setState(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != s {
		f.logger.Debug("flow.state", "flow.from", string(f.state), "flow.to", string(s))
	}

	f.state = s
}

func (f *PlanAct) acquire() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return core.ErrAgentBusy
	}

	f.running = true

	return nil
}

func (f *PlanAct) release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.running = false
}
