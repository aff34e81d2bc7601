// Package testutil contains helpers used across tests to drain event streams,
// summarize them for assertions and build scripted tool calls. They are not
// intended for production usage.
package testutil
