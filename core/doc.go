// Package core provides the foundational domain types shared by every planact
// layer. It defines:
//
//   - Events (the closed, immutable union streamed to callers)
//   - Plans and Steps (the unit of work of the plan/act protocol)
//   - Messages and Files (user input and attachment references)
//   - ToolResult (the uniform payload of every tool invocation)
//   - Sentinel errors and the iteration limiter used by agent loops
//
// The package keeps implementation concerns (model adapters, tool providers,
// persistence) out of scope so that agents, flows and stores can depend on
// it without import cycles.
package core
