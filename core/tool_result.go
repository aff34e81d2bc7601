package core

import "encoding/json"

// ToolResult is the uniform outcome of a tool invocation. It is serialized as
// JSON into the tool-role message of the agent transcript.
type ToolResult[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// OK wraps data into a successful result.
func OK[T any](data T) ToolResult[T] {
	return ToolResult[T]{Success: true, Data: data}
}

// Fail creates a failed result carrying an error message.
func Fail[T any](message string) ToolResult[T] {
	return ToolResult[T]{Success: false, Message: message}
}

// JSON encodes the result for the transcript. Values that cannot be encoded
// degrade to a failed result describing the encoding error.
func (r ToolResult[T]) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(ToolResult[any]{Success: false, Message: "encode tool result: " + err.Error()})
	}

	return string(b)
}
