// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (file access, user messaging, side‑effects) with
// schema validated arguments, consistent error handling and rich metadata for
// LLM guidance.
//
// Tools are grouped into providers (toolkits). Agents see the flattened list of
// function schemas of all their providers and route each call to the provider
// that owns the function name.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/internal/util"
	"github.com/hupe1980/planact/model"
)

// Error codes attached to ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodePanic      = "PANIC"
)

// Tool defines a single callable function.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should be descriptive and follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with already decoded arguments. Returning a
	// core.ToolResult[any] lets a tool report a handled failure without an error.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Provider is a named bundle of tools exposed to agents.
type Provider interface {
	// Name identifies the provider, reported as tool_name on tool events.
	Name() string

	// Tools returns the function schemas offered to the model.
	Tools() []model.ToolDefinition

	// HasTool reports whether the provider owns the given function name.
	HasTool(name string) bool

	// Invoke runs the named function. A non-nil error means the call failed
	// and may be retried; a failed ToolResult is a final answer.
	Invoke(ctx context.Context, name string, args map[string]any) (core.ToolResult[any], error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}

	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Retryable reports whether repeating the same call could succeed.
func (e *ToolError) Retryable() bool { return e.Code != CodeValidation }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// Definition converts a Tool into the model facing function schema.
func Definition(t Tool) model.ToolDefinition {
	return model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}
