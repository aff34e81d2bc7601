// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with language / reasoning models inside planact.
//
// Core goals:
//   - Put every provider behind a single non-streaming Invoke call
//   - Normalize tool / function call representation (ToolDefinition, ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate scripted mocking for tests (MockModel)
//
// Providers (OpenAI compatible endpoints, Anthropic) implement the Model
// interface from this package so agents remain decoupled from vendor SDKs.
package model
