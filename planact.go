// Package planact provides a high-level façade over the plan/act runtime.
// Most applications interact with this package by:
//  1. Loading an AppConfig with config.Load
//  2. Creating an App via New (optionally overriding the model, store or toolkits)
//  3. Running a request as a stream (Run), in the background (Invoke) or
//     to completion (RunSync)
//
// Each session id owns one flow with its own planner and executor memory, so
// a question asked by the executor is answered by calling Run again with the
// same session id.
package planact

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/planact/agent"
	"github.com/hupe1980/planact/config"
	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/flow"
	"github.com/hupe1980/planact/logging"
	"github.com/hupe1980/planact/memory"
	"github.com/hupe1980/planact/model"
	anthropicmodel "github.com/hupe1980/planact/model/anthropic"
	openaimodel "github.com/hupe1980/planact/model/openai"
	"github.com/hupe1980/planact/parser"
	"github.com/hupe1980/planact/session"
	"github.com/hupe1980/planact/session/sqlite"
	"github.com/hupe1980/planact/task"
	"github.com/hupe1980/planact/tool"
)

// Options overrides the services New would otherwise build from the config.
type Options struct {
	// Model replaces the provider built from cfg.LLM.
	Model model.Model
	// Store replaces the in-memory or sqlite store selected by cfg.Session.
	Store core.SessionStore
	// Tasks defaults to a fresh registry.
	Tasks *task.Registry
	// Parser defaults to the JSON repair parser.
	Parser parser.Parser
	// Notifier receives message_notify_user calls.
	Notifier tool.Notifier
	// Tools are added to the executor next to the file and message toolkits.
	Tools  []tool.Provider
	Logger logging.Logger
}

// App is the high-level façade aggregating model, toolkits, flows and stores.
type App struct {
	cfg      *config.AppConfig
	llm      model.Model
	parser   parser.Parser
	tools    []tool.Provider
	store    core.SessionStore
	tasks    *task.Registry
	logger   logging.Logger
	closeFns []func() error

	mu    sync.Mutex
	flows map[string]*flow.PlanAct
}

// New wires an App from cfg. A nil cfg uses config.Default.
func New(cfg *config.AppConfig, optFns ...func(o *Options)) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = cfg.Logger()
	}

	app := &App{
		cfg:    cfg,
		llm:    opts.Model,
		parser: opts.Parser,
		store:  opts.Store,
		tasks:  opts.Tasks,
		logger: opts.Logger,
		flows:  make(map[string]*flow.PlanAct),
	}

	if app.llm == nil {
		llm, err := NewModel(cfg.LLM)
		if err != nil {
			return nil, err
		}

		app.llm = llm
	}

	if app.parser == nil {
		app.parser = parser.New(func(o *parser.Options) { o.Logger = opts.Logger })
	}

	if app.tasks == nil {
		app.tasks = task.NewRegistry(func(o *task.Options) { o.Logger = opts.Logger })
	}

	withLogger := func(o *tool.ToolkitOptions) { o.Logger = opts.Logger }

	files, err := tool.NewFileToolkit(cfg.Tools.WorkspaceDir, withLogger, func(o *tool.ToolkitOptions) {
		o.MaxResults = cfg.Agent.MaxSearchResult
	})
	if err != nil {
		return nil, err
	}

	app.tools = append([]tool.Provider{files, tool.NewMessageToolkit(opts.Notifier, withLogger)}, opts.Tools...)

	if app.store == nil {
		store, err := openStore(cfg.Session)
		if err != nil {
			return nil, err
		}

		app.store = store
		if c, ok := store.(interface{ Close() error }); ok {
			app.closeFns = append(app.closeFns, c.Close)
		}
	}

	return app, nil
}

// NewModel builds the language model selected by cfg.Provider.
func NewModel(cfg config.LLM) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			o.Model = cfg.ModelName
			o.BaseURL = cfg.BaseURL
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.Model = anthropic.Model(cfg.ModelName)
			o.BaseURL = cfg.BaseURL
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
		}), nil
	default:
		return nil, fmt.Errorf("%w: llm.provider %q is not supported", config.ErrInvalid, cfg.Provider)
	}
}

func openStore(cfg config.Session) (core.SessionStore, error) {
	if cfg.SQLitePath == "" {
		return session.NewInMemoryStore(), nil
	}

	store, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	return store, nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.AppConfig { return a.cfg }

// Store returns the session store.
func (a *App) Store() core.SessionStore { return a.store }

// Tasks returns the background task registry.
func (a *App) Tasks() *task.Registry { return a.tasks }

// Flow returns the flow of sessionID, creating it with fresh agents on first use.
func (a *App) Flow(sessionID string) *flow.PlanAct {
	a.mu.Lock()
	defer a.mu.Unlock()

	if f, ok := a.flows[sessionID]; ok {
		return f
	}

	agentOpts := func(o *agent.Options) { o.Logger = a.logger }

	planner := agent.NewPlanner(a.cfg.Agent, a.llm, memory.New(), a.parser, nil, agentOpts)
	executor := agent.NewExecutor(
		a.cfg.Agent,
		a.llm,
		memory.New(memory.WithCompactable(a.cfg.Tools.Compactable...)),
		a.parser,
		a.tools,
		agentOpts,
	)

	f := flow.NewPlanAct(planner, executor, func(o *flow.Options) {
		o.SessionID = sessionID
		o.Store = a.store
		o.Logger = a.logger
	})
	a.flows[f.SessionID()] = f

	return f
}

// Run streams the events of one turn of sessionID. An empty sessionID starts
// a new session.
func (a *App) Run(ctx context.Context, sessionID string, msg core.Message) iter.Seq2[core.Event, error] {
	return a.Flow(sessionID).Run(ctx, msg)
}

// Invoke runs one turn in the background. The task id equals the session id,
// so a session has at most one running task.
func (a *App) Invoke(ctx context.Context, sessionID string, msg core.Message) (*task.Task, error) {
	f := a.Flow(sessionID)

	return a.tasks.Start(ctx, f.SessionID(), func(ctx context.Context) iter.Seq2[core.Event, error] {
		return f.Run(ctx, msg)
	})
}

// RunSync drains Invoke and returns the events collected so far together
// with the terminal error, if any.
func (a *App) RunSync(ctx context.Context, sessionID string, msg core.Message) ([]core.Event, error) {
	t, err := a.Invoke(ctx, sessionID, msg)
	if err != nil {
		return nil, err
	}

	var events []core.Event

	for {
		select {
		case <-ctx.Done():
			t.Cancel()
			return events, ctx.Err()
		case ev, ok := <-t.Events():
			if !ok {
				return events, t.Wait(ctx)
			}

			events = append(events, ev)
		}
	}
}

// Close stops running tasks and releases the stores opened by New.
func (a *App) Close(ctx context.Context) error {
	errs := []error{a.tasks.Shutdown(ctx)}
	for _, fn := range a.closeFns {
		errs = append(errs, fn())
	}

	return errors.Join(errs...)
}
