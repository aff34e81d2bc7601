// Package flow orchestrates the planner and executor agents into a complete
// task run.
//
// A flow creates a plan for the user request, executes its steps one at a
// time, revises the remaining steps after each one and finally summarizes
// the result. Every event of the agents is forwarded to the caller in causal
// order and, when a session store is configured, recorded into the session.
package flow

import (
	"context"
	"iter"

	"github.com/hupe1980/planact/core"
)

// Flow defines the interface for task execution flows.
//
// Run streams the events of one user turn. A flow that paused on a question
// to the user treats the next message as the answer and resumes.
type Flow interface {
	Run(ctx context.Context, msg core.Message) iter.Seq2[core.Event, error]

	// State returns the current state of the flow.
	State() State
}

// State is the position of a flow in the plan/act cycle.
type State string

const (
	StateIdle        State = "idle"
	StatePlanning    State = "planning"
	StateExecuting   State = "executing"
	StateUpdating    State = "updating"
	StateSummarizing State = "summarizing"
	StateCompleted   State = "completed"
	StateWaiting     State = "waiting"
	StateFailed      State = "failed"
)

// Resumable reports whether the next Run continues the current plan.
func (s State) Resumable() bool { return s == StateWaiting }
