package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_Script(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("hello").
		AddError(errors.New("boom")).
		AddToolCalls(ToolCall{ID: "c1", Type: "function", Function: ToolCallFunction{Name: "f", Arguments: "{}"}})

	ctx := context.Background()

	resp, err := m.Invoke(ctx, Request{Messages: []Message{UserMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Message.Content)
	assert.Equal(t, "stop", resp.FinishReason)

	_, err = m.Invoke(ctx, Request{})
	assert.EqualError(t, err, "boom")

	resp, err = m.Invoke(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.Len(t, resp.Message.ToolCalls, 1)

	_, err = m.Invoke(ctx, Request{})
	assert.Error(t, err)

	assert.Len(t, m.Requests(), 4)
	assert.Equal(t, "hi", m.Requests()[0].Messages[0].Content)
	assert.Equal(t, 0, m.Remaining())
}

func TestMockModel_CanceledContext(t *testing.T) {
	m := NewMockModel("mock", "test").AddResponse("x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Invoke(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, m.Remaining())
}

func TestMessage_Empty(t *testing.T) {
	assert.True(t, AssistantMessage("").Empty())
	assert.False(t, AssistantMessage("x").Empty())
	assert.False(t, AssistantMessage("", ToolCall{ID: "1"}).Empty())
}
