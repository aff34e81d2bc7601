package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/internal/util"
	"github.com/hupe1980/planact/logging"
	"github.com/hupe1980/planact/memory"
	"github.com/hupe1980/planact/model"
	"github.com/hupe1980/planact/parser"
	"github.com/hupe1980/planact/tool"
)

// continuePrompt is appended after an empty model reply.
const continuePrompt = "The assistant returned no content. Please continue."

// Config holds the limits shared by every agent of a flow.
type Config struct {
	MaxIterations   int `json:"max_iterations" toml:"max_iterations" yaml:"max_iterations"`
	MaxRetries      int `json:"max_retries" toml:"max_retries" yaml:"max_retries"`
	MaxSearchResult int `json:"max_search_result" toml:"max_search_result" yaml:"max_search_result"`
}

// DefaultConfig returns the default agent limits.
func DefaultConfig() Config {
	return Config{MaxIterations: 100, MaxRetries: 3, MaxSearchResult: 10}
}

// Options configures a BaseAgent.
type Options struct {
	Name          string
	SystemPrompt  string
	Format        string // default response format, "" lets the provider decide
	ToolChoice    string // "" sends no tool choice
	RetryInterval time.Duration
	Logger        logging.Logger
}

// BaseAgent drives a bounded conversation with a model. Each model turn may
// request a tool; the first requested call is dispatched, its result is fed
// back and the model is called again until it answers with plain content,
// the retry budget is spent or the iteration budget is exceeded.
//
// A BaseAgent owns its Memory. Invoke may not run concurrently on the same
// instance; a second call while one is active yields core.ErrAgentBusy.
type BaseAgent struct {
	name         string
	cfg          Config
	llm          model.Model
	memory       *memory.Memory
	parser       parser.Parser
	registry     *tool.Registry
	executor     *tool.Executor
	systemPrompt string
	format       string
	toolChoice   string
	interval     time.Duration
	logger       logging.Logger

	mu      sync.Mutex
	running bool
}

// NewBaseAgent constructs a BaseAgent. A nil memory or parser is replaced by a fresh default.
func NewBaseAgent(cfg Config, llm model.Model, mem *memory.Memory, p parser.Parser, providers []tool.Provider, optFns ...func(o *Options)) *BaseAgent {
	opts := Options{
		Name:          "agent",
		RetryInterval: time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}

	if mem == nil {
		mem = memory.New()
	}

	logger := logging.With(logging.OrNoOp(opts.Logger), "agent.name", opts.Name)

	if p == nil {
		p = parser.New(func(o *parser.Options) { o.Logger = logger })
	}

	return &BaseAgent{
		name:     opts.Name,
		cfg:      cfg,
		llm:      llm,
		memory:   mem,
		parser:   p,
		registry: tool.NewRegistry(providers...),
		executor: tool.NewExecutor(func(o *tool.ExecutorOptions) {
			o.MaxRetries = cfg.MaxRetries
			o.Interval = opts.RetryInterval
			o.Logger = logger
		}),
		systemPrompt: opts.SystemPrompt,
		format:       opts.Format,
		toolChoice:   opts.ToolChoice,
		interval:     opts.RetryInterval,
		logger:       logger,
	}
}

// Name returns the agent name.
func (a *BaseAgent) Name() string { return a.name }

// Memory returns the transcript owned by the agent.
func (a *BaseAgent) Memory() *memory.Memory { return a.memory }

// Config returns the agent limits.
func (a *BaseAgent) Config() Config { return a.cfg }

// Invoke sends query to the model and streams the resulting events. format
// overrides the agent's default response format when non-empty.
//
// Tool dispatch failures become failed ToolResults fed back to the model.
// An exceeded iteration budget and a model that keeps failing are reported
// as an ErrorEvent. An unknown function name, a canceled context and a busy
// agent are returned as the error of the final pair.
func (a *BaseAgent) Invoke(ctx context.Context, query, format string) iter.Seq2[core.Event, error] {
	return func(yield func(core.Event, error) bool) {
		if err := a.acquire(); err != nil {
			yield(nil, err)
			return
		}
		defer a.release()

		if format == "" {
			format = a.format
		}

		msg, err := a.invokeModel(ctx, format, model.UserMessage(query))
		if err != nil {
			a.yieldFailure(yield, err)
			return
		}

		limiter := core.NewIterationLimiter(a.cfg.MaxIterations)

		for {
			if len(msg.ToolCalls) == 0 {
				yield(core.NewMessageEvent(msg.Content), nil)
				return
			}

			if err := limiter.Increment(); err != nil {
				// The pending tool call will never be answered.
				a.memory.RollBack()
				a.logger.Warn("agent.iterations.exceeded", "agent.max_iterations", limiter.Max(), "agent.iterations", limiter.Count())
				yield(core.NewErrorEvent(err.Error()), nil)

				return
			}

			call := msg.ToolCalls[0]
			name := call.Function.Name

			provider, err := a.registry.Resolve(name)
			if err != nil {
				a.memory.RollBack()
				yield(nil, err)

				return
			}

			args, argErr := a.parseArgs(call.Function.Arguments)

			a.logger.Debug("agent.tool.dispatch",
				"tool.name", provider.Name(),
				"tool.function", name,
				"tool.call_id", call.ID,
			)

			if !yield(core.NewToolCallingEvent(call.ID, provider.Name(), name, args), nil) {
				a.memory.RollBack()
				return
			}

			var result core.ToolResult[any]
			if argErr != nil {
				result = core.Fail[any](argErr.Error())
			} else {
				result = a.executor.Execute(ctx, provider, name, args)
			}

			a.memory.AddMessage(model.ToolMessage(call.ID, name, result.JSON()))

			if !yield(core.NewToolCalledEvent(call.ID, provider.Name(), name, args, result), nil) {
				return
			}

			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			msg, err = a.invokeModel(ctx, format)
			if err != nil {
				a.yieldFailure(yield, err)
				return
			}
		}
	}
}

// invokeModel appends msgs to memory and calls the model until it returns a
// non-empty assistant turn, which is stored with its tool calls truncated to one.
func (a *BaseAgent) invokeModel(ctx context.Context, format string, msgs ...model.Message) (model.Message, error) {
	a.addToMemory(msgs...)

	var lastErr error

	for attempt := 1; attempt <= a.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			if err := util.Sleep(ctx, a.interval); err != nil {
				return model.Message{}, err
			}
		}

		req := model.Request{
			Messages:       a.memory.Messages(),
			Tools:          a.registry.Definitions(),
			ResponseFormat: format,
			ToolChoice:     a.toolChoice,
		}

		start := time.Now()
		resp, err := a.llm.Invoke(ctx, req)
		logging.LogLLMCall(a.logger, a.llm.Info().Name, time.Since(start), err == nil, err)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return model.Message{}, ctxErr
			}

			lastErr = err

			continue
		}

		if resp.Message.Empty() {
			a.logger.Warn("agent.llm.empty_response", "agent.attempt", attempt)
			a.memory.AddMessages(model.AssistantMessage(""), model.UserMessage(continuePrompt))
			lastErr = errors.New("empty response")

			continue
		}

		filtered := model.AssistantMessage(resp.Message.Content)

		if len(resp.Message.ToolCalls) > 0 {
			if len(resp.Message.ToolCalls) > 1 {
				a.logger.Debug("agent.tool_calls.truncated", "tool.requested", len(resp.Message.ToolCalls))
			}

			call := resp.Message.ToolCalls[0]
			if call.ID == "" {
				call.ID = core.NewID()
			}

			if call.Type == "" {
				call.Type = "function"
			}

			filtered.ToolCalls = []model.ToolCall{call}
		}

		a.memory.AddMessage(filtered)

		return filtered, nil
	}

	return model.Message{}, fmt.Errorf("%w: giving up after %d attempts: %v", core.ErrModelUnavailable, a.cfg.MaxRetries, lastErr)
}

// addToMemory prepends the system prompt to an empty transcript, even when
// the prompt is empty.
func (a *BaseAgent) addToMemory(msgs ...model.Message) {
	if a.memory.Empty() {
		a.memory.AddMessage(model.SystemMessage(a.systemPrompt))
	}

	a.memory.AddMessages(msgs...)
}

func (a *BaseAgent) parseArgs(raw string) (map[string]any, error) {
	v, err := a.parser.Parse(raw, map[string]any{})
	if err != nil {
		return map[string]any{}, fmt.Errorf("invalid tool arguments: %w", err)
	}

	args, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, fmt.Errorf("invalid tool arguments: expected a JSON object, got %T", v)
	}

	return args, nil
}

func (a *BaseAgent) yieldFailure(yield func(core.Event, error) bool, err error) {
	if errors.Is(err, core.ErrModelUnavailable) {
		a.logger.Error("agent.llm.unavailable", "error", err)
		yield(core.NewErrorEvent(err.Error()), nil)

		return
	}

	yield(nil, err)
}

func (a *BaseAgent) acquire() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return core.ErrAgentBusy
	}

	a.running = true

	return nil
}

func (a *BaseAgent) release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.running = false
}
