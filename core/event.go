package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType discriminates the variants of Event on the wire.
type EventType string

const (
	EventTypePlan    EventType = "plan"
	EventTypeTitle   EventType = "title"
	EventTypeStep    EventType = "step"
	EventTypeMessage EventType = "message"
	EventTypeTool    EventType = "tool"
	EventTypeWait    EventType = "wait"
	EventTypeError   EventType = "error"
	EventTypeDone    EventType = "done"
)

// PlanEventStatus reports what happened to a plan.
type PlanEventStatus string

const (
	PlanCreated   PlanEventStatus = "created"
	PlanUpdated   PlanEventStatus = "updated"
	PlanCompleted PlanEventStatus = "completed"
)

// StepEventStatus reports what happened to a step.
type StepEventStatus string

const (
	StepStarted   StepEventStatus = "started"
	StepCompleted StepEventStatus = "completed"
	StepFailed    StepEventStatus = "failed"
)

// ToolEventStatus distinguishes the announcement of a tool call from its result.
type ToolEventStatus string

const (
	ToolCalling ToolEventStatus = "calling"
	ToolCalled  ToolEventStatus = "called"
)

// Event is the closed union of everything an agent or flow streams to its
// caller. Concrete variants implement the unexported isEvent marker, so
// consumers can rely on exhaustive type switches. After emission an event
// must be treated as immutable; constructors snapshot mutable inputs.
type Event interface {
	Meta() BaseEvent
	isEvent()
}

// BaseEvent carries the metadata shared by every variant.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Meta returns the shared metadata.
func (b BaseEvent) Meta() BaseEvent { return b }

func newBase(t EventType) BaseEvent {
	return BaseEvent{ID: NewID(), Type: t, CreatedAt: time.Now().UTC()}
}

// PlanEvent announces a created, updated or completed plan.
type PlanEvent struct {
	BaseEvent
	Plan   *Plan           `json:"plan"`
	Status PlanEventStatus `json:"status"`
}

func (PlanEvent) isEvent() {}

// TitleEvent carries the plan title once a plan has been created.
type TitleEvent struct {
	BaseEvent
	Title string `json:"title"`
}

func (TitleEvent) isEvent() {}

// StepEvent announces a step transition.
type StepEvent struct {
	BaseEvent
	Step   *Step           `json:"step"`
	Status StepEventStatus `json:"status"`
}

func (StepEvent) isEvent() {}

// MessageEvent carries conversational text for the user.
type MessageEvent struct {
	BaseEvent
	Role        string `json:"role"`
	Message     string `json:"message"`
	Attachments []File `json:"attachments,omitempty"`
}

func (MessageEvent) isEvent() {}

// ToolEvent reports a tool call. A CALLING event always precedes the matching
// CALLED event of the same ToolCallID.
type ToolEvent struct {
	BaseEvent
	ToolCallID     string           `json:"tool_call_id"`
	ToolName       string           `json:"tool_name"`
	FunctionName   string           `json:"function_name"`
	FunctionArgs   map[string]any   `json:"function_args"`
	FunctionResult *ToolResult[any] `json:"function_result,omitempty"`
	Status         ToolEventStatus  `json:"status"`
}

func (ToolEvent) isEvent() {}

// WaitEvent signals that the flow is blocked on user input.
type WaitEvent struct {
	BaseEvent
}

func (WaitEvent) isEvent() {}

// ErrorEvent reports a recoverable failure as data.
type ErrorEvent struct {
	BaseEvent
	Error string `json:"error"`
}

func (ErrorEvent) isEvent() {}

// DoneEvent marks the end of a flow run.
type DoneEvent struct {
	BaseEvent
}

func (DoneEvent) isEvent() {}

// NewPlanEvent snapshots the plan into a PlanEvent.
func NewPlanEvent(plan *Plan, status PlanEventStatus) PlanEvent {
	return PlanEvent{BaseEvent: newBase(EventTypePlan), Plan: plan.Clone(), Status: status}
}

// NewTitleEvent creates a TitleEvent.
func NewTitleEvent(title string) TitleEvent {
	return TitleEvent{BaseEvent: newBase(EventTypeTitle), Title: title}
}

// NewStepEvent snapshots the step into a StepEvent.
func NewStepEvent(step *Step, status StepEventStatus) StepEvent {
	return StepEvent{BaseEvent: newBase(EventTypeStep), Step: step.Clone(), Status: status}
}

// NewMessageEvent creates an assistant message event.
func NewMessageEvent(message string, attachments ...File) MessageEvent {
	return MessageEvent{BaseEvent: newBase(EventTypeMessage), Role: "assistant", Message: message, Attachments: attachments}
}

// NewUserMessageEvent creates a user message event.
func NewUserMessageEvent(message string, attachments ...File) MessageEvent {
	e := NewMessageEvent(message, attachments...)
	e.Role = "user"

	return e
}

// NewToolCallingEvent announces a tool call before it is dispatched.
func NewToolCallingEvent(callID, toolName, functionName string, args map[string]any) ToolEvent {
	return ToolEvent{
		BaseEvent:    newBase(EventTypeTool),
		ToolCallID:   callID,
		ToolName:     toolName,
		FunctionName: functionName,
		FunctionArgs: cloneArgs(args),
		Status:       ToolCalling,
	}
}

// NewToolCalledEvent reports the result of a dispatched tool call.
func NewToolCalledEvent(callID, toolName, functionName string, args map[string]any, result ToolResult[any]) ToolEvent {
	e := NewToolCallingEvent(callID, toolName, functionName, args)
	e.Status = ToolCalled
	e.FunctionResult = &result

	return e
}

// NewWaitEvent creates a WaitEvent.
func NewWaitEvent() WaitEvent { return WaitEvent{BaseEvent: newBase(EventTypeWait)} }

// NewErrorEvent creates an ErrorEvent.
func NewErrorEvent(msg string) ErrorEvent {
	return ErrorEvent{BaseEvent: newBase(EventTypeError), Error: msg}
}

// NewDoneEvent creates a DoneEvent.
func NewDoneEvent() DoneEvent { return DoneEvent{BaseEvent: newBase(EventTypeDone)} }

func cloneArgs(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}

	c := make(map[string]any, len(args))
	for k, v := range args {
		c[k] = v
	}

	return c
}

// MarshalEvent encodes an event as JSON with its type discriminator.
func MarshalEvent(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("marshal event: nil event")
	}

	return json.Marshal(e)
}

// UnmarshalEvent decodes an event produced by MarshalEvent.
func UnmarshalEvent(data []byte) (Event, error) {
	var head BaseEvent
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}

	var (
		e   Event
		err error
	)

	switch head.Type {
	case EventTypePlan:
		e, err = decode[PlanEvent](data)
	case EventTypeTitle:
		e, err = decode[TitleEvent](data)
	case EventTypeStep:
		e, err = decode[StepEvent](data)
	case EventTypeMessage:
		e, err = decode[MessageEvent](data)
	case EventTypeTool:
		e, err = decode[ToolEvent](data)
	case EventTypeWait:
		e, err = decode[WaitEvent](data)
	case EventTypeError:
		e, err = decode[ErrorEvent](data)
	case EventTypeDone:
		e, err = decode[DoneEvent](data)
	default:
		return nil, fmt.Errorf("unmarshal event: unknown type %q", head.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("unmarshal %s event: %w", head.Type, err)
	}

	return e, nil
}

func decode[T Event](data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)

	return v, err
}
