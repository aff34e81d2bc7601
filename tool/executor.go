package tool

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/internal/util"
	"github.com/hupe1980/planact/logging"
)

// Executor invokes provider functions with a bounded, fixed-interval retry.
type Executor struct {
	maxRetries int
	interval   time.Duration
	logger     logging.Logger
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	MaxRetries int           // attempts per call, at least 1
	Interval   time.Duration // pause between attempts
	Logger     logging.Logger
}

// NewExecutor creates an Executor. MaxRetries below 1 is raised to 1.
func NewExecutor(optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{MaxRetries: 3, Interval: time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}

	return &Executor{maxRetries: opts.MaxRetries, interval: opts.Interval, logger: logging.OrNoOp(opts.Logger)}
}

// Execute runs the named function on p. It never returns an error: once the
// retry budget is spent (or a non-retryable validation error occurs) the last
// error text becomes a failed ToolResult.
func (e *Executor) Execute(ctx context.Context, p Provider, name string, args map[string]any) core.ToolResult[any] {
	var lastErr error

	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		result, err := p.Invoke(ctx, name, args)
		if err == nil {
			return result
		}

		lastErr = err

		var toolErr *ToolError
		if errors.As(err, &toolErr) && !toolErr.Retryable() {
			break
		}

		if errors.Is(err, core.ErrNotFound) {
			break
		}

		e.logger.Warn("agent.tool.retry", "tool", name, "attempt", attempt, "max_retries", e.maxRetries, "error", err.Error())

		if attempt == e.maxRetries {
			break
		}

		if err := util.Sleep(ctx, e.interval); err != nil {
			lastErr = err
			break
		}
	}

	return core.Fail[any](lastErr.Error())
}
