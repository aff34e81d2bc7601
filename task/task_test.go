package task

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/planact/core"
)

func messages(texts ...string) RunFunc {
	return func(context.Context) iter.Seq2[core.Event, error] {
		return func(yield func(core.Event, error) bool) {
			for _, text := range texts {
				if !yield(core.NewMessageEvent(text), nil) {
					return
				}
			}
		}
	}
}

// blocking yields one event and then waits for cancellation.
func blocking(ctx context.Context) iter.Seq2[core.Event, error] {
	return func(yield func(core.Event, error) bool) {
		if !yield(core.NewMessageEvent("started"), nil) {
			return
		}

		<-ctx.Done()
		yield(nil, ctx.Err())
	}
}

func drain(t *Task) []string {
	var out []string
	for ev := range t.Events() {
		out = append(out, ev.(core.MessageEvent).Message)
	}

	return out
}

func TestRegistry_StartAndDrain(t *testing.T) {
	r := NewRegistry()

	tk, err := r.Start(context.Background(), "t1", messages("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "t1", tk.ID())

	assert.Equal(t, []string{"a", "b"}, drain(tk))
	require.NoError(t, tk.Wait(context.Background()))
	assert.Equal(t, StatusCompleted, tk.Status())

	got, err := r.Get("t1")
	require.NoError(t, err)
	assert.Same(t, tk, got)
}

func TestRegistry_GeneratesID(t *testing.T) {
	r := NewRegistry()

	tk, err := r.Start(context.Background(), "", messages())
	require.NoError(t, err)
	assert.NotEmpty(t, tk.ID())
	assert.Len(t, r.List(), 1)
}

func TestRegistry_Failure(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")

	tk, err := r.Start(context.Background(), "t1", func(context.Context) iter.Seq2[core.Event, error] {
		return func(yield func(core.Event, error) bool) {
			yield(nil, boom)
		}
	})
	require.NoError(t, err)

	assert.Empty(t, drain(tk))
	assert.ErrorIs(t, tk.Wait(context.Background()), boom)
	assert.Equal(t, StatusFailed, tk.Status())
}

func TestRegistry_Cancel(t *testing.T) {
	r := NewRegistry()

	tk, err := r.Start(context.Background(), "t1", blocking)
	require.NoError(t, err)

	assert.Equal(t, "started", (<-tk.Events()).(core.MessageEvent).Message)
	require.NoError(t, r.Cancel("t1"))

	assert.ErrorIs(t, tk.Wait(context.Background()), context.Canceled)
	assert.Equal(t, StatusCanceled, tk.Status())
}

func TestRegistry_DuplicateRunningID(t *testing.T) {
	r := NewRegistry()

	tk, err := r.Start(context.Background(), "t1", blocking)
	require.NoError(t, err)
	defer tk.Cancel()

	_, err = r.Start(context.Background(), "t1", messages())
	assert.ErrorIs(t, err, core.ErrAgentBusy)
}

func TestRegistry_MaxConcurrent(t *testing.T) {
	r := NewRegistry(func(o *Options) { o.MaxConcurrent = 1 })

	first, err := r.Start(context.Background(), "t1", blocking)
	require.NoError(t, err)

	_, err = r.Start(context.Background(), "t2", messages())
	assert.ErrorIs(t, err, ErrTooManyTasks)

	first.Cancel()
	<-first.Done()

	second, err := r.Start(context.Background(), "t2", messages("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, drain(second))
}

func TestRegistry_UnknownTask(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, r.Cancel("nope"), core.ErrNotFound)
}

func TestRegistry_RemoveCancels(t *testing.T) {
	r := NewRegistry()

	tk, err := r.Start(context.Background(), "t1", blocking)
	require.NoError(t, err)

	r.Remove("t1")
	<-tk.Done()

	assert.Empty(t, r.List())
	assert.Equal(t, StatusCanceled, tk.Status())
}

func TestRegistry_Shutdown(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{"a", "b", "c"} {
		_, err := r.Start(context.Background(), id, blocking)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, r.Shutdown(ctx))

	for _, tk := range r.List() {
		assert.Equal(t, StatusCanceled, tk.Status())
	}
}
