package testutil

import (
	"encoding/json"
	"fmt"
	"iter"

	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/model"
)

// Collect drains seq and returns every event together with the first error.
// Events yielded before the error are kept.
func Collect(seq iter.Seq2[core.Event, error]) ([]core.Event, error) {
	var events []core.Event

	for ev, err := range seq {
		if err != nil {
			return events, err
		}

		events = append(events, ev)
	}

	return events, nil
}

// Kinds renders events as short labels such as "step:started" or
// "tool:calling:file_read" so whole streams can be compared in one assert.
func Kinds(events []core.Event) []string {
	out := make([]string, 0, len(events))

	for _, ev := range events {
		switch e := ev.(type) {
		case core.PlanEvent:
			out = append(out, "plan:"+string(e.Status))
		case core.StepEvent:
			out = append(out, "step:"+string(e.Status))
		case core.ToolEvent:
			out = append(out, fmt.Sprintf("tool:%s:%s", e.Status, e.FunctionName))
		default:
			out = append(out, string(ev.Meta().Type))
		}
	}

	return out
}

// Of returns the events of type T in order.
func Of[T core.Event](events []core.Event) []T {
	var out []T

	for _, ev := range events {
		if t, ok := ev.(T); ok {
			out = append(out, t)
		}
	}

	return out
}

// Call builds a model tool call with args encoded as JSON.
func Call(id, function string, args map[string]any) model.ToolCall {
	b, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}

	return model.ToolCall{ID: id, Type: "function", Function: model.ToolCallFunction{Name: function, Arguments: string(b)}}
}

// JSON encodes v, panicking on failure.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return string(b)
}
