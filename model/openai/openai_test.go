package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/planact/model"
)

func TestBuildMessages_Roles(t *testing.T) {
	msgs := []model.Message{
		model.SystemMessage("sys"),
		model.UserMessage("hi"),
		model.AssistantMessage("", model.ToolCall{ID: "c1", Type: "function", Function: model.ToolCallFunction{Name: "file_read", Arguments: "{}"}}),
		model.ToolMessage("c1", "file_read", `{"success":true}`),
		model.AssistantMessage("done"),
	}

	out := buildMessages(msgs)
	require.Len(t, out, 5)

	assert.NotNil(t, out[0].OfSystem)
	assert.NotNil(t, out[1].OfUser)
	require.NotNil(t, out[2].OfAssistant)
	require.Len(t, out[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "c1", out[2].OfAssistant.ToolCalls[0].ID)
	require.NotNil(t, out[3].OfTool)
	assert.Equal(t, "c1", out[3].OfTool.ToolCallID)
	assert.NotNil(t, out[4].OfAssistant)
}

func TestBuildMessages_SkipsEmptySystem(t *testing.T) {
	out := buildMessages([]model.Message{model.SystemMessage(""), model.UserMessage("hi")})
	require.Len(t, out, 1)
	assert.NotNil(t, out[0].OfUser)
}

func TestBuildParams_FormatAndToolChoice(t *testing.T) {
	m := NewModel(func(o *Options) {
		o.Model = "deepseek-chat"
		o.APIKey = "test"
		o.BaseURL = "https://api.deepseek.com"
	})

	params := m.buildParams(model.Request{
		Messages:       []model.Message{model.UserMessage("plan")},
		ResponseFormat: model.FormatJSONObject,
		ToolChoice:     model.ToolChoiceNone,
		Tools: []model.ToolDefinition{{
			Type:     "function",
			Function: model.FunctionDefinition{Name: "message_notify_user", Parameters: map[string]any{"type": "object"}},
		}},
	})

	assert.Equal(t, "deepseek-chat", params.Model)
	assert.NotNil(t, params.ResponseFormat.OfJSONObject)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "none", params.ToolChoice.OfAuto.Value)
}

func TestBuildParams_NoToolsOmitsToolChoice(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test" })

	params := m.buildParams(model.Request{Messages: []model.Message{model.UserMessage("x")}, ToolChoice: model.ToolChoiceAuto})
	assert.Empty(t, params.Tools)
	assert.False(t, params.ToolChoice.OfAuto.Valid())
	assert.Nil(t, params.ResponseFormat.OfJSONObject)
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) { o.Model = "gpt-4o"; o.APIKey = "test" })
	assert.Equal(t, model.Info{Name: "gpt-4o", Provider: "openai", SupportsTools: true}, m.Info())
}
