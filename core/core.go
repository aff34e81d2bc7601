package core

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a tool call names a function no provider exposes.
	ErrNotFound = errors.New("not found")

	// ErrParse is returned when model output cannot be turned into the expected JSON shape.
	ErrParse = errors.New("parse error")

	// ErrAgentBusy is returned when an agent or flow is invoked while a previous
	// invocation is still producing events.
	ErrAgentBusy = errors.New("agent is already running")

	// ErrModelUnavailable signals that the model kept failing or returning empty
	// replies until the retry budget was spent.
	ErrModelUnavailable = errors.New("model unavailable")
)

// NewID returns a random UUID string used for events, plans, steps and tool calls.
func NewID() string { return uuid.NewString() }
