package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/planact/core"
)

// -------------------- FunctionTool --------------------

func TestFunctionTool_ValidationError(t *testing.T) {
	ft := NewFunctionTool("echo", "echo", map[string]any{
		"type":       "object",
		"properties": map[string]any{"x": map[string]any{"type": "integer"}},
		"required":   []any{"x"},
	}, func(_ context.Context, args map[string]any) (any, error) {
		return args["x"], nil
	})

	_, err := ft.Call(context.Background(), map[string]any{})
	require.Error(t, err)

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeValidation, te.Code)
	assert.False(t, te.Retryable())

	out, err := ft.Call(context.Background(), map[string]any{"x": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 3.0, out)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	ft := NewFunctionTool("fail", "fails", map[string]any{"type": "object"}, func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("boom")
	})

	_, err := ft.Call(context.Background(), nil)

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeExecution, te.Code)
	assert.True(t, te.Retryable())
	assert.Equal(t, "tool error [EXECUTION_ERROR] in fail: boom", te.Error())
}

func TestNewTypedTool(t *testing.T) {
	type args struct {
		N int `json:"n"`
	}

	ft := NewTypedTool("double", "double n", func(_ context.Context, a args) (any, error) {
		return a.N * 2, nil
	})

	assert.Equal(t, []string{"n"}, ft.Parameters()["required"])

	out, err := ft.Call(context.Background(), map[string]any{"n": 4.0})
	require.NoError(t, err)
	assert.Equal(t, 8, out)
}

// -------------------- Toolkit & Registry --------------------

func newCounterToolkit(fail int) (*Toolkit, *int) {
	calls := 0

	return NewToolkit("test", []Tool{
		NewFunctionTool("flaky", "fails a few times", map[string]any{"type": "object"}, func(context.Context, map[string]any) (any, error) {
			calls++
			if calls <= fail {
				return nil, errors.New("transient")
			}

			return "ok", nil
		}),
		NewFunctionTool("handled", "returns a failed result", map[string]any{"type": "object"}, func(context.Context, map[string]any) (any, error) {
			return core.Fail[any]("nope"), nil
		}),
		NewFunctionTool("panics", "panics", map[string]any{"type": "object"}, func(context.Context, map[string]any) (any, error) {
			panic("kaboom")
		}),
	}), &calls
}

func TestToolkit_Invoke(t *testing.T) {
	tk, _ := newCounterToolkit(0)
	ctx := context.Background()

	assert.Equal(t, "test", tk.Name())
	assert.Len(t, tk.Tools(), 3)
	assert.True(t, tk.HasTool("flaky"))
	assert.False(t, tk.HasTool("missing"))

	res, err := tk.Invoke(ctx, "flaky", nil)
	require.NoError(t, err)
	assert.Equal(t, core.OK[any]("ok"), res)

	res, err = tk.Invoke(ctx, "handled", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "nope", res.Message)

	_, err = tk.Invoke(ctx, "missing", nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestToolkit_RecoversPanic(t *testing.T) {
	tk, _ := newCounterToolkit(0)

	_, err := tk.Invoke(context.Background(), "panics", nil)
	require.Error(t, err)

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodePanic, te.Code)
	assert.Contains(t, te.Message, "kaboom")
}

func TestRegistry_ResolveAndDefinitions(t *testing.T) {
	a := NewToolkit("a", []Tool{NewFunctionTool("x", "", nil, nil), NewFunctionTool("y", "", nil, nil)})
	b := NewToolkit("b", []Tool{NewFunctionTool("y", "", nil, nil), NewFunctionTool("z", "", nil, nil)})

	r := NewRegistry(a, b)

	defs := r.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "x", defs[0].Function.Name)
	assert.Equal(t, "function", defs[0].Type)

	p, err := r.Resolve("y")
	require.NoError(t, err)
	assert.Equal(t, "a", p.Name())

	p, err = r.Resolve("z")
	require.NoError(t, err)
	assert.Equal(t, "b", p.Name())

	_, err = r.Resolve("nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

// -------------------- Executor --------------------

func TestExecutor_RetriesThenSucceeds(t *testing.T) {
	tk, calls := newCounterToolkit(2)
	ex := NewExecutor(func(o *ExecutorOptions) { o.MaxRetries = 3; o.Interval = time.Millisecond })

	res := ex.Execute(context.Background(), tk, "flaky", nil)
	assert.True(t, res.Success)
	assert.Equal(t, 3, *calls)
}

func TestExecutor_ExhaustedYieldsFailedResult(t *testing.T) {
	tk, calls := newCounterToolkit(10)
	ex := NewExecutor(func(o *ExecutorOptions) { o.MaxRetries = 2; o.Interval = time.Millisecond })

	res := ex.Execute(context.Background(), tk, "flaky", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "transient")
	assert.Equal(t, 2, *calls)
}

func TestExecutor_ValidationNotRetried(t *testing.T) {
	calls := 0
	tk := NewToolkit("t", []Tool{NewFunctionTool("strict", "", map[string]any{"required": []any{"a"}}, func(context.Context, map[string]any) (any, error) {
		calls++
		return nil, nil
	})})

	ex := NewExecutor(func(o *ExecutorOptions) { o.MaxRetries = 5; o.Interval = time.Hour })

	res := ex.Execute(context.Background(), tk, "strict", map[string]any{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "VALIDATION_ERROR")
	assert.Equal(t, 0, calls)
}

func TestExecutor_ContextCanceledDuringBackoff(t *testing.T) {
	tk, _ := newCounterToolkit(10)
	ex := NewExecutor(func(o *ExecutorOptions) { o.MaxRetries = 5; o.Interval = time.Hour })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	res := ex.Execute(ctx, tk, "flaky", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, context.DeadlineExceeded.Error())
}

// -------------------- Message toolkit --------------------

func TestMessageToolkit(t *testing.T) {
	var got string

	tk := NewMessageToolkit(func(_ context.Context, text string, _ []string) { got = text })

	assert.True(t, tk.HasTool(NotifyUserFunction))
	assert.True(t, tk.HasTool(AskUserFunction))

	res, err := tk.Invoke(context.Background(), NotifyUserFunction, map[string]any{"text": "working on it"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "working on it", got)

	_, err = tk.Invoke(context.Background(), AskUserFunction, map[string]any{})
	assert.Error(t, err)
}
