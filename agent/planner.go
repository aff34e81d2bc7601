package agent

import (
	"context"
	"iter"
	"strings"

	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/memory"
	"github.com/hupe1980/planact/model"
	"github.com/hupe1980/planact/parser"
	"github.com/hupe1980/planact/tool"
)

// PlannerName is the default name of the planner agent.
const PlannerName = "planner"

// Planner turns a user request into a Plan and revises the remaining steps
// after each executed step. It always requests JSON and never calls tools.
type Planner struct {
	*BaseAgent
}

// NewPlanner creates a Planner. providers are advertised to the model for
// context only; the planner forces tool choice "none".
func NewPlanner(cfg Config, llm model.Model, mem *memory.Memory, p parser.Parser, providers []tool.Provider, optFns ...func(o *Options)) *Planner {
	defaults := func(o *Options) {
		o.Name = PlannerName
		o.SystemPrompt = SystemPrompt + PlannerSystemPrompt
		o.Format = model.FormatJSONObject
		o.ToolChoice = model.ToolChoiceNone
	}

	return &Planner{BaseAgent: NewBaseAgent(cfg, llm, mem, p, providers, append([]func(o *Options){defaults}, optFns...)...)}
}

// CreatePlan asks the model for a plan covering msg. The model's JSON answer
// is re-emitted as a PlanEvent with status created; every other event passes
// through. Unparseable output ends the stream with a core.ErrParse error.
func (p *Planner) CreatePlan(ctx context.Context, msg core.Message) iter.Seq2[core.Event, error] {
	return func(yield func(core.Event, error) bool) {
		query, err := createPlanPrompt.Render(createPlanData{
			Message:     msg.Message,
			Attachments: strings.Join(msg.Attachments, "\n"),
		})
		if err != nil {
			yield(nil, err)
			return
		}

		for event, err := range p.Invoke(ctx, query, "") {
			if err != nil {
				yield(nil, err)
				return
			}

			me, ok := event.(core.MessageEvent)
			if !ok {
				if !yield(event, nil) {
					return
				}

				continue
			}

			plan, err := p.decodePlan(me.Message)
			if err != nil {
				yield(nil, err)
				return
			}

			if plan.Message == "" {
				plan.Message = msg.Message
			}

			p.logger.Info("agent.plan.created", "plan.id", plan.ID, "plan.steps", len(plan.Steps))

			if !yield(core.NewPlanEvent(plan, core.PlanCreated), nil) {
				return
			}
		}
	}
}

// UpdatePlan asks the model to revise the steps of plan that follow step.
// Steps before the first unfinished step are kept as they are; the model's
// steps replace everything from that index on. When every step is already
// done the plan is left unchanged. plan is modified in place and a PlanEvent
// with status updated is emitted.
func (p *Planner) UpdatePlan(ctx context.Context, plan *core.Plan, step *core.Step) iter.Seq2[core.Event, error] {
	return func(yield func(core.Event, error) bool) {
		query, err := updatePlanPrompt.Render(updatePlanData{Plan: plan.JSON(), Step: step.JSON()})
		if err != nil {
			yield(nil, err)
			return
		}

		for event, err := range p.Invoke(ctx, query, "") {
			if err != nil {
				yield(nil, err)
				return
			}

			me, ok := event.(core.MessageEvent)
			if !ok {
				if !yield(event, nil) {
					return
				}

				continue
			}

			updated, err := p.decodePlan(me.Message)
			if err != nil {
				yield(nil, err)
				return
			}

			MergeSteps(plan, updated.Steps)

			p.logger.Info("agent.plan.updated", "plan.id", plan.ID, "plan.steps", len(plan.Steps))

			if !yield(core.NewPlanEvent(plan, core.PlanUpdated), nil) {
				return
			}
		}
	}
}

// MergeSteps replaces the steps of plan from the first unfinished one on with
// steps. It returns false and leaves plan untouched when no step is pending.
func MergeSteps(plan *core.Plan, steps []*core.Step) bool {
	idx := plan.NextStepIndex()
	if idx < 0 {
		return false
	}

	merged := make([]*core.Step, 0, idx+len(steps))
	merged = append(merged, plan.Steps[:idx]...)
	merged = append(merged, steps...)
	plan.Steps = merged

	return true
}

func (p *Planner) decodePlan(text string) (*core.Plan, error) {
	v, err := p.parser.Parse(text, nil)
	if err != nil {
		return nil, err
	}

	return core.DecodePlan(v)
}
