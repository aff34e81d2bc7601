package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/logging"
	"github.com/hupe1980/planact/model"
)

// Toolkit is a Provider backed by an ordered set of Tools.
type Toolkit struct {
	name   string
	order  []string
	tools  map[string]Tool
	logger logging.Logger
}

// ToolkitOptions configures a Toolkit.
type ToolkitOptions struct {
	Logger logging.Logger
	// MaxResults caps list results of search functions. 0 keeps the toolkit default.
	MaxResults int
}

// NewToolkit creates a provider named name exposing tools in the given order.
// Later tools with a duplicate name replace earlier ones.
func NewToolkit(name string, tools []Tool, optFns ...func(o *ToolkitOptions)) *Toolkit {
	opts := ToolkitOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	tk := &Toolkit{
		name:   name,
		tools:  make(map[string]Tool, len(tools)),
		logger: logging.OrNoOp(opts.Logger),
	}

	for _, t := range tools {
		if _, dup := tk.tools[t.Name()]; !dup {
			tk.order = append(tk.order, t.Name())
		}

		tk.tools[t.Name()] = t
	}

	return tk
}

// Name implements Provider.
func (tk *Toolkit) Name() string { return tk.name }

// Tools implements Provider.
func (tk *Toolkit) Tools() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(tk.order))
	for _, n := range tk.order {
		defs = append(defs, Definition(tk.tools[n]))
	}

	return defs
}

// HasTool implements Provider.
func (tk *Toolkit) HasTool(name string) bool {
	_, ok := tk.tools[name]
	return ok
}

// Invoke implements Provider. Panics inside a tool are recovered into a
// *ToolError with code PANIC.
func (tk *Toolkit) Invoke(ctx context.Context, name string, args map[string]any) (result core.ToolResult[any], err error) {
	t, ok := tk.tools[name]
	if !ok {
		return core.ToolResult[any]{}, fmt.Errorf("toolkit %s: function %s: %w", tk.name, name, core.ErrNotFound)
	}

	tk.logger.Debug("tool.call.start", "toolkit", tk.name, "tool", name)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			tk.logger.Error("tool.call.panic", "tool", name, "recover", r)
			err = panicError(name, r)
		}

		logging.LogToolCall(tk.logger, name, time.Since(start), err == nil && result.Success, err)
	}()

	out, err := t.Call(ctx, args)
	if err != nil {
		return core.ToolResult[any]{}, err
	}

	if r, ok := out.(core.ToolResult[any]); ok {
		return r, nil
	}

	return core.OK(out), nil
}

// panicError converts a recovered panic value to a ToolError without pulling external dependencies.
func panicError(tool string, r any) error {
	return &ToolError{Tool: tool, Message: fmt.Sprintf("panic recovered: %v", r), Code: CodePanic, Details: string(debug.Stack())}
}

// Registry flattens several providers into one lookup table.
type Registry struct {
	providers []Provider
}

// NewRegistry creates a Registry. When two providers expose the same
// function name, the first one wins.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Providers returns the registered providers.
func (r *Registry) Providers() []Provider { return r.providers }

// Definitions returns the combined function schemas of all providers.
func (r *Registry) Definitions() []model.ToolDefinition {
	var (
		defs []model.ToolDefinition
		seen = map[string]struct{}{}
	)

	for _, p := range r.providers {
		for _, d := range p.Tools() {
			if _, dup := seen[d.Function.Name]; dup {
				continue
			}

			seen[d.Function.Name] = struct{}{}
			defs = append(defs, d)
		}
	}

	return defs
}

// Resolve returns the provider owning the function name or core.ErrNotFound.
func (r *Registry) Resolve(name string) (Provider, error) {
	for _, p := range r.providers {
		if p.HasTool(name) {
			return p, nil
		}
	}

	return nil, fmt.Errorf("tool %s: %w", name, core.ErrNotFound)
}
