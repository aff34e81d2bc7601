package model

import (
	"context"
	"fmt"
	"sync"
)

// Role names used in the chat transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Response formats understood by providers.
const (
	FormatText       = "text"
	FormatJSONObject = "json_object"
)

// Tool choice modes understood by providers.
const (
	ToolChoiceAuto     = "auto"
	ToolChoiceNone     = "none"
	ToolChoiceRequired = "required"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction describes the concrete function target of a tool call.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments, possibly malformed
}

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Message is one role-tagged entry of a conversation transcript.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"` // function name on tool messages
}

// Empty reports whether the message has neither content nor tool calls.
func (m Message) Empty() bool {
	return m.Content == "" && len(m.ToolCalls) == 0
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage builds a user message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage builds an assistant message.
func AssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage builds the tool-role reply to a tool call.
func ToolMessage(callID, functionName, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Name: functionName}
}

// Request captures the normalized model input produced by agents.
type Request struct {
	Messages       []Message        `json:"messages"`
	Tools          []ToolDefinition `json:"tools,omitempty"`
	ResponseFormat string           `json:"response_format,omitempty"` // "" or "text" or "json_object"
	ToolChoice     string           `json:"tool_choice,omitempty"`     // "" or "auto", "none", "required"
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the assistant turn returned by a model.
type Response struct {
	ID           string      `json:"id"`
	Message      Message     `json:"message"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
// Invoke performs one non-streaming completion over the full transcript.
type Model interface {
	Invoke(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a scripted in‑memory Model useful for tests & examples. Every
// Invoke pops the next queued step; an exhausted script yields an error.
type MockModel struct {
	info Info

	mu       sync.Mutex
	script   []mockStep
	requests []Request
}

type mockStep struct {
	msg Message
	err error
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
	}
}

// AddResponse queues a plain assistant reply.
func (m *MockModel) AddResponse(content string) *MockModel {
	return m.AddMessage(AssistantMessage(content))
}

// AddToolCalls queues an assistant reply requesting the given tool calls.
func (m *MockModel) AddToolCalls(calls ...ToolCall) *MockModel {
	return m.AddMessage(AssistantMessage("", calls...))
}

// AddMessage queues an arbitrary assistant message.
func (m *MockModel) AddMessage(msg Message) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, mockStep{msg: msg})

	return m
}

// AddError queues a transport error.
func (m *MockModel) AddError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, mockStep{err: err})

	return m
}

// Requests returns a copy of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Request(nil), m.requests...)
}

// Remaining returns the number of queued steps not yet consumed.
func (m *MockModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.script)
}

// Invoke implements Model.
func (m *MockModel) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := req
	snapshot.Messages = append([]Message(nil), req.Messages...)
	m.requests = append(m.requests, snapshot)

	if len(m.script) == 0 {
		return nil, fmt.Errorf("mock model %s: script exhausted", m.info.Name)
	}

	step := m.script[0]
	m.script = m.script[1:]

	if step.err != nil {
		return nil, step.err
	}

	finish := "stop"
	if len(step.msg.ToolCalls) > 0 {
		finish = "tool_calls"
	}

	return &Response{ID: fmt.Sprintf("mock-%d", len(m.requests)), Message: step.msg, FinishReason: finish}, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
