package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/internal/testutil"
	"github.com/hupe1980/planact/model"
)

type failingParser struct{}

func (failingParser) Parse(string, any) (any, error) { return nil, core.ErrParse }

const helloPlan = `{
  "message": "I will write the file.",
  "language": "en",
  "title": "Hello file",
  "goal": "Create hello.txt",
  "steps": [{"id": "1", "description": "Write hello.txt"}]
}`

func TestPlanner_CreatePlan(t *testing.T) {
	llm := model.NewMockModel("mock", "mock").AddResponse("```json\n" + helloPlan + "\n```")
	p := NewPlanner(testConfig(), llm, nil, nil, nil, fast)

	events, err := testutil.Collect(p.CreatePlan(context.Background(), core.Message{Message: "Write hello.txt"}))
	require.NoError(t, err)
	require.Equal(t, []string{"plan:created"}, testutil.Kinds(events))

	plan := events[0].(core.PlanEvent).Plan
	assert.Equal(t, "Hello file", plan.Title)
	assert.Equal(t, "en", plan.Language)
	assert.Equal(t, core.StatusPending, plan.Status)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "1", plan.Steps[0].ID)
	assert.Equal(t, core.StatusPending, plan.Steps[0].Status)

	req := llm.Requests()[0]
	assert.Equal(t, model.FormatJSONObject, req.ResponseFormat)
	assert.Equal(t, model.ToolChoiceNone, req.ToolChoice)
	assert.Equal(t, model.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "task planner")
	assert.Contains(t, req.Messages[1].Content, "Write hello.txt")
}

func TestPlanner_CreatePlanDefaultsMessage(t *testing.T) {
	llm := model.NewMockModel("mock", "mock").AddResponse(`{"title": "t", "steps": []}`)
	p := NewPlanner(testConfig(), llm, nil, nil, nil, fast)

	events, err := testutil.Collect(p.CreatePlan(context.Background(), core.Message{Message: "do it", Attachments: []string{"/in/a.csv"}}))
	require.NoError(t, err)
	assert.Equal(t, "do it", events[0].(core.PlanEvent).Plan.Message)
	assert.Contains(t, llm.Requests()[0].Messages[1].Content, "/in/a.csv")
}

func TestPlanner_CreatePlanParseError(t *testing.T) {
	llm := model.NewMockModel("mock", "mock").AddResponse("garbage")
	p := NewPlanner(testConfig(), llm, nil, failingParser{}, nil, fast)

	_, err := testutil.Collect(p.CreatePlan(context.Background(), core.Message{Message: "x"}))
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestPlanner_CreatePlanPassesErrorEvents(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	p := NewPlanner(Config{MaxIterations: 1, MaxRetries: 1}, llm, nil, nil, nil, fast)

	events, err := testutil.Collect(p.CreatePlan(context.Background(), core.Message{Message: "x"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"error"}, testutil.Kinds(events))
}

func planWith(statuses ...core.ExecutionStatus) *core.Plan {
	plan := &core.Plan{ID: "p", Title: "t", Status: core.StatusRunning}
	for i, s := range statuses {
		plan.Steps = append(plan.Steps, &core.Step{ID: string(rune('a' + i)), Description: "old", Status: s})
	}

	return plan
}

func TestPlanner_UpdatePlanKeepsFinishedSteps(t *testing.T) {
	llm := model.NewMockModel("mock", "mock").
		AddResponse(`{"steps": [{"id": "n1", "description": "new1"}, {"id": "n2", "description": "new2"}]}`)
	p := NewPlanner(testConfig(), llm, nil, nil, nil, fast)

	plan := planWith(core.StatusCompleted, core.StatusCompleted, core.StatusPending, core.StatusPending)
	first, second := plan.Steps[0], plan.Steps[1]

	events, err := testutil.Collect(p.UpdatePlan(context.Background(), plan, second))
	require.NoError(t, err)
	require.Equal(t, []string{"plan:updated"}, testutil.Kinds(events))

	require.Len(t, plan.Steps, 4)
	assert.Same(t, first, plan.Steps[0])
	assert.Same(t, second, plan.Steps[1])
	assert.Equal(t, "n1", plan.Steps[2].ID)
	assert.Equal(t, "new2", plan.Steps[3].Description)
	assert.Equal(t, core.StatusPending, plan.Steps[3].Status)

	assert.Equal(t, []string{"a", "b", "n1", "n2"}, stepIDs(events[0].(core.PlanEvent).Plan))
	assert.Contains(t, llm.Requests()[0].Messages[1].Content, `"id":"p"`)
}

func TestPlanner_UpdatePlanAllDoneIsNoop(t *testing.T) {
	llm := model.NewMockModel("mock", "mock").AddResponse(`{"steps": [{"id": "n1", "description": "extra"}]}`)
	p := NewPlanner(testConfig(), llm, nil, nil, nil, fast)

	plan := planWith(core.StatusCompleted, core.StatusFailed)

	events, err := testutil.Collect(p.UpdatePlan(context.Background(), plan, plan.Steps[1]))
	require.NoError(t, err)
	require.Equal(t, []string{"plan:updated"}, testutil.Kinds(events))
	assert.Equal(t, []string{"a", "b"}, stepIDs(plan))
}

func TestMergeSteps(t *testing.T) {
	tests := []struct {
		name    string
		plan    *core.Plan
		steps   []*core.Step
		merged  bool
		wantIDs []string
	}{
		{"replaces tail", planWith(core.StatusCompleted, core.StatusPending), []*core.Step{{ID: "x"}}, true, []string{"a", "x"}},
		{"empty update drops pending", planWith(core.StatusCompleted, core.StatusPending), nil, true, []string{"a"}},
		{"running step is replaced", planWith(core.StatusRunning), []*core.Step{{ID: "x"}, {ID: "y"}}, true, []string{"x", "y"}},
		{"nothing pending", planWith(core.StatusCompleted), []*core.Step{{ID: "x"}}, false, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.merged, MergeSteps(tt.plan, tt.steps))
			assert.Equal(t, tt.wantIDs, stepIDs(tt.plan))
		})
	}
}

func stepIDs(p *core.Plan) []string {
	ids := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		ids[i] = s.ID
	}

	return ids
}
