package agent

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/memory"
	"github.com/hupe1980/planact/model"
	"github.com/hupe1980/planact/parser"
	"github.com/hupe1980/planact/tool"
)

// ExecutorName is the default name of the executor agent.
const ExecutorName = "executor"

// Executor completes plan steps one at a time using tools and writes the
// final summary of a task. Answers are requested as JSON.
type Executor struct {
	*BaseAgent
}

// NewExecutor creates an Executor agent over providers.
func NewExecutor(cfg Config, llm model.Model, mem *memory.Memory, p parser.Parser, providers []tool.Provider, optFns ...func(o *Options)) *Executor {
	defaults := func(o *Options) {
		o.Name = ExecutorName
		o.SystemPrompt = SystemPrompt + ExecutorSystemPrompt
		o.Format = model.FormatJSONObject
	}

	return &Executor{BaseAgent: NewBaseAgent(cfg, llm, mem, p, providers, append([]func(o *Options){defaults}, optFns...)...)}
}

// ExecuteStep runs step of plan for the user request msg. step is updated in
// place and announced through StepEvents.
//
// A call of the ask-user function surfaces the question as a MessageEvent
// and, once the call returns, ends the stream with a WaitEvent while the step
// stays running. The model's final JSON answer completes the step; an
// ErrorEvent fails it.
func (e *Executor) ExecuteStep(ctx context.Context, plan *core.Plan, step *core.Step, msg core.Message) iter.Seq2[core.Event, error] {
	return func(yield func(core.Event, error) bool) {
		query, err := executionPrompt.Render(executionData{
			Message:     msg.Message,
			Attachments: strings.Join(msg.Attachments, "\n"),
			Language:    plan.Language,
			Step:        step.Description,
		})
		if err != nil {
			yield(nil, err)
			return
		}

		step.Status = core.StatusRunning
		if !yield(core.NewStepEvent(step, core.StepStarted), nil) {
			return
		}

		for event, err := range e.Invoke(ctx, query, "") {
			if err != nil {
				e.fail(step, err.Error())
				if yield(core.NewStepEvent(step, core.StepFailed), nil) {
					yield(nil, err)
				}

				return
			}

			switch ev := event.(type) {
			case core.ToolEvent:
				if ev.FunctionName != tool.AskUserFunction {
					break
				}

				if ev.Status == core.ToolCalling {
					question, _ := ev.FunctionArgs["text"].(string)
					if !yield(core.NewMessageEvent(question), nil) {
						return
					}

					continue
				}

				e.logger.Info("agent.step.waiting", "step.id", step.ID)
				yield(core.NewWaitEvent(), nil)

				return
			case core.MessageEvent:
				v, err := e.parser.Parse(ev.Message, nil)
				if err != nil {
					e.fail(step, err.Error())
					if yield(core.NewStepEvent(step, core.StepFailed), nil) {
						yield(nil, err)
					}

					return
				}

				answer, err := core.DecodeStep(v)
				if err != nil {
					e.fail(step, err.Error())
					if yield(core.NewStepEvent(step, core.StepFailed), nil) {
						yield(nil, err)
					}

					return
				}

				step.Success = answer.Success
				step.Result = answer.Result
				step.Attachments = answer.Attachments
				step.Status = core.StatusCompleted

				if !yield(core.NewStepEvent(step, core.StepCompleted), nil) {
					return
				}

				if step.Result != "" {
					if !yield(core.NewMessageEvent(step.Result), nil) {
						return
					}
				}
			case core.ErrorEvent:
				e.fail(step, ev.Error)
				if !yield(core.NewStepEvent(step, core.StepFailed), nil) {
					return
				}
			}

			if !yield(event, nil) {
				return
			}
		}

		if !step.Done() {
			step.Status = core.StatusCompleted
		}
	}
}

// Summarize asks the model for the final answer of the task, based on the
// transcript collected while executing steps.
func (e *Executor) Summarize(ctx context.Context) iter.Seq2[core.Event, error] {
	return func(yield func(core.Event, error) bool) {
		for event, err := range e.Invoke(ctx, SummarizePrompt, "") {
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

			v, err := e.parser.Parse(me.Message, nil)
			if err != nil {
				yield(nil, err)
				return
			}

			summary, err := decodeMessage(v)
			if err != nil {
				yield(nil, err)
				return
			}

			e.logger.Info("agent.summary.created", "summary.attachments", len(summary.Attachments))

			if !yield(core.NewMessageEvent(summary.Message, core.FilesFromPaths(summary.Attachments)...), nil) {
				return
			}
		}
	}
}

// CompactMemory drops bulky tool output from the executor transcript and
// returns the number of rewritten messages.
func (e *Executor) CompactMemory() int {
	n := e.memory.Compact()
	if n > 0 {
		e.logger.Debug("agent.memory.compacted", "memory.rewritten", n)
	}

	return n
}

func (e *Executor) fail(step *core.Step, reason string) {
	step.Status = core.StatusFailed
	step.Error = reason
	e.logger.Warn("agent.step.failed", "step.id", step.ID, "error", reason)
}

func decodeMessage(v any) (core.Message, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return core.Message{}, fmt.Errorf("%w: summary must be a JSON object, got %T", core.ErrParse, v)
	}

	msg := core.Message{}
	msg.Message, _ = obj["message"].(string)

	if raw, ok := obj["attachments"].([]any); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				msg.Attachments = append(msg.Attachments, s)
			}
		}
	}

	return msg, nil
}
