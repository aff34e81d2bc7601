// Package logging provides a minimal logging interface and adapters for planact.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that agents, flows and tools use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - Domain helpers recording tool and model calls with consistent keys
//
// Usage:
//
//	logger := logging.NewLogger(&logging.Config{Level: logging.LevelInfo, Format: "text"})
//	app, err := planact.New(cfg, func(o *planact.Options) { o.Logger = logger })
//
// Log messages use dotted event names (for example "agent.llm.empty_response")
// followed by key/value pairs.
package logging
