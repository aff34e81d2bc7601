package planact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/planact/config"
	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/internal/testutil"
	"github.com/hupe1980/planact/logging"
	"github.com/hupe1980/planact/model"
	"github.com/hupe1980/planact/task"
)

const plan = `{"message": "On it.", "language": "en", "title": "Hello", "steps": [{"id": "1", "description": "Write hello.txt"}]}`

func testApp(t *testing.T, llm model.Model, optFns ...func(o *Options)) *App {
	t.Helper()

	cfg := config.Default()
	cfg.Tools.WorkspaceDir = t.TempDir()
	cfg.Agent.MaxRetries = 1

	opts := append([]func(o *Options){func(o *Options) {
		o.Model = llm
		o.Logger = logging.NoOpLogger{}
	}}, optFns...)

	app, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	return app
}

// script queues one full turn in call order: plan, step, update, summary.
func script() *model.MockModel {
	return model.NewMockModel("mock", "mock").
		AddResponse(plan).
		AddToolCalls(testutil.Call("w1", "file_write", map[string]any{"filepath": "hello.txt", "content": "Hello"})).
		AddResponse(`{"success": true, "result": "Wrote hello.txt"}`).
		AddResponse(`{"steps": []}`).
		AddResponse(`{"message": "Done."}`)
}

func TestApp_Run(t *testing.T) {
	llm := script()
	app := testApp(t, llm)

	events, err := testutil.Collect(app.Run(context.Background(), "s1", core.Message{Message: "Write hello.txt"}))
	require.NoError(t, err)
	assert.Equal(t, "done", testutil.Kinds(events)[len(events)-1])
	assert.Equal(t, 0, llm.Remaining())

	data, err := os.ReadFile(filepath.Join(app.Config().Tools.WorkspaceDir, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(data))

	sess, err := app.Store().Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, core.SessionCompleted, sess.Status)
	assert.Same(t, app.Flow("s1"), app.Flow("s1"))
}

func TestApp_RunSync(t *testing.T) {
	app := testApp(t, script())

	events, err := app.RunSync(context.Background(), "s1", core.Message{Message: "Write hello.txt"})
	require.NoError(t, err)
	assert.Equal(t, "plan:created", testutil.Kinds(events)[0])
	assert.Equal(t, "done", testutil.Kinds(events)[len(events)-1])

	tk, err := app.Tasks().Get("s1")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, tk.Status())
}

func TestApp_RunSyncReportsFailure(t *testing.T) {
	llm := model.NewMockModel("mock", "mock").
		AddResponse(plan).
		AddToolCalls(testutil.Call("c1", "shell_exec", map[string]any{}))
	app := testApp(t, llm)

	_, err := app.RunSync(context.Background(), "s1", core.Message{Message: "x"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestApp_SessionsAreIndependent(t *testing.T) {
	app := testApp(t, model.NewMockModel("mock", "mock"))

	a, b := app.Flow("a"), app.Flow("b")
	assert.NotSame(t, a, b)
	assert.Equal(t, "a", a.SessionID())

	generated := app.Flow("")
	assert.NotEmpty(t, generated.SessionID())
}

func TestApp_SQLiteStore(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.WorkspaceDir = t.TempDir()
	cfg.Session.SQLitePath = filepath.Join(t.TempDir(), "sessions.db")

	app, err := New(cfg, func(o *Options) { o.Model = script(); o.Logger = logging.NoOpLogger{} })
	require.NoError(t, err)

	_, err = app.RunSync(context.Background(), "s1", core.Message{Message: "Write hello.txt"})
	require.NoError(t, err)
	require.NoError(t, app.Close(context.Background()))

	reopened, err := New(cfg, func(o *Options) { o.Model = script(); o.Logger = logging.NoOpLogger{} })
	require.NoError(t, err)
	defer reopened.Close(context.Background())

	sess, err := reopened.Store().Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", sess.Title)
	assert.Equal(t, core.SessionCompleted, sess.Status)
}

func TestNewModel(t *testing.T) {
	llm, err := NewModel(config.LLM{Provider: config.ProviderOpenAI, ModelName: "deepseek-chat", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", llm.Info().Name)

	llm, err = NewModel(config.LLM{Provider: config.ProviderAnthropic, ModelName: "claude-3-5-haiku-latest", APIKey: "k"})
	require.NoError(t, err)
	assert.NotNil(t, llm)

	_, err = NewModel(config.LLM{Provider: "gemini"})
	assert.ErrorIs(t, err, config.ErrInvalid)
}
