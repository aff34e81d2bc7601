package core

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ExecutionStatus tracks the lifecycle of a Plan or Step.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// Terminal reports whether the status is completed or failed.
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Step is a single unit of work inside a Plan.
type Step struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Status      ExecutionStatus `json:"status"`
	Result      string          `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Success     bool            `json:"success"`
	Attachments []string        `json:"attachments,omitempty"`
}

// NewStep creates a pending step with a generated id.
func NewStep(description string) *Step {
	return &Step{ID: NewID(), Description: description, Status: StatusPending}
}

// Done reports whether the step reached a terminal status.
func (s *Step) Done() bool { return s.Status.Terminal() }

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}

	c := *s
	if s.Attachments != nil {
		c.Attachments = append([]string(nil), s.Attachments...)
	}

	return &c
}

// Plan is the ordered decomposition of a user request produced by the planner.
type Plan struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Goal     string          `json:"goal"`
	Language string          `json:"language"`
	Steps    []*Step         `json:"steps"`
	Message  string          `json:"message"`
	Status   ExecutionStatus `json:"status"`
	Error    string          `json:"error,omitempty"`
}

// Done reports whether the plan reached a terminal status.
func (p *Plan) Done() bool { return p.Status.Terminal() }

// NextStep returns the first step that is not yet done, or nil.
func (p *Plan) NextStep() *Step {
	for _, s := range p.Steps {
		if !s.Done() {
			return s
		}
	}

	return nil
}

// NextStepIndex returns the index of the first step that is not yet done, or -1.
func (p *Plan) NextStepIndex() int {
	for i, s := range p.Steps {
		if !s.Done() {
			return i
		}
	}

	return -1
}

// Clone returns a deep copy of the plan including its steps.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}

	c := *p
	if p.Steps != nil {
		c.Steps = make([]*Step, len(p.Steps))
		for i, s := range p.Steps {
			c.Steps[i] = s.Clone()
		}
	}

	return &c
}

// JSON encodes the plan for prompt rendering.
func (p *Plan) JSON() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// JSON encodes the step for prompt rendering.
func (s *Step) JSON() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// rawStep mirrors Step with loosely typed fields so model output such as
// numeric ids or structured results still decodes.
type rawStep struct {
	ID          any      `json:"id"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Result      any      `json:"result"`
	Error       any      `json:"error"`
	Success     bool     `json:"success"`
	Attachments []string `json:"attachments"`
}

type rawPlan struct {
	ID       any        `json:"id"`
	Title    string     `json:"title"`
	Goal     string     `json:"goal"`
	Language string     `json:"language"`
	Steps    []*rawStep `json:"steps"`
	Message  string     `json:"message"`
	Status   string     `json:"status"`
	Error    any        `json:"error"`
}

// DecodePlan converts a parsed JSON value (as returned by a JSON parser) into
// a Plan. Missing ids are generated and missing statuses default to pending.
func DecodePlan(v any) (*Plan, error) {
	var raw rawPlan
	if err := remarshal(v, &raw); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	p := &Plan{
		ID:       text(raw.ID),
		Title:    raw.Title,
		Goal:     raw.Goal,
		Language: raw.Language,
		Message:  raw.Message,
		Status:   ExecutionStatus(raw.Status),
		Error:    text(raw.Error),
		Steps:    make([]*Step, 0, len(raw.Steps)),
	}

	for _, rs := range raw.Steps {
		if rs == nil {
			continue
		}

		p.Steps = append(p.Steps, rs.step())
	}

	if p.ID == "" {
		p.ID = NewID()
	}

	if p.Status == "" {
		p.Status = StatusPending
	}

	return p, nil
}

// DecodeStep converts a parsed JSON value into a Step using the same
// normalization rules as DecodePlan.
func DecodeStep(v any) (*Step, error) {
	var raw rawStep
	if err := remarshal(v, &raw); err != nil {
		return nil, fmt.Errorf("decode step: %w", err)
	}

	return raw.step(), nil
}

// DecodeSteps extracts the "steps" array of a parsed plan-shaped value.
func DecodeSteps(v any) ([]*Step, error) {
	p, err := DecodePlan(v)
	if err != nil {
		return nil, err
	}

	return p.Steps, nil
}

func (rs *rawStep) step() *Step {
	s := &Step{
		ID:          text(rs.ID),
		Description: rs.Description,
		Status:      ExecutionStatus(rs.Status),
		Result:      text(rs.Result),
		Error:       text(rs.Error),
		Success:     rs.Success,
		Attachments: rs.Attachments,
	}

	if s.ID == "" {
		s.ID = NewID()
	}

	if s.Status == "" {
		s.Status = StatusPending
	}

	return s
}

func remarshal(v any, out any) error {
	if v == nil {
		return fmt.Errorf("%w: nil value", ErrParse)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	return nil
}

// text renders a loosely typed JSON value as a string.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}

		return string(b)
	}
}
