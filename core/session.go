package core

import (
	"context"
	"sync"
	"time"
)

// SessionStatus tracks where a conversation stands in the plan/act cycle.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionWaiting   SessionStatus = "waiting"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session is one user conversation: a title, a status and the ordered event
// history streamed by the flow. It is safe for concurrent access.
//
// Contract:
//   - Mutations update the Updated timestamp
//   - GetEvents returns a defensive copy
//   - Conversation keeps only the message events exchanged with the user
//   - Clone performs deep copies of maps/slices for safe divergence.
type Session struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Status   SessionStatus     `json:"status"`
	Events   []Event           `json:"-"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`
	Metadata map[string]string `json:"metadata,omitempty"`
	mu       sync.RWMutex
}

// NewSession creates a pending session with the given ID.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, Status: SessionPending, Events: []Event{}, Created: now, Updated: now, Metadata: map[string]string{}}
}

// AddEvent appends an event to the history. A TitleEvent also sets the title.
func (s *Session) AddEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if te, ok := ev.(TitleEvent); ok {
		s.Title = te.Title
	}

	s.Events = append(s.Events, ev)
	s.Updated = time.Now().UTC()
}

// SetTitle replaces the session title.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Title = title
	s.Updated = time.Now().UTC()
}

// SetStatus replaces the session status.
func (s *Session) SetStatus(status SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	s.Updated = time.Now().UTC()
}

// GetEvents returns a defensive copy of the full event slice.
func (s *Session) GetEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]Event, len(s.Events))
	copy(events, s.Events)
	return events
}

// Conversation returns the user and assistant messages of the session in order.
func (s *Session) Conversation() []MessageEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]MessageEvent, 0, len(s.Events))
	for _, ev := range s.Events {
		if me, ok := ev.(MessageEvent); ok {
			res = append(res, me)
		}
	}
	return res
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{ID: s.ID, Title: s.Title, Status: s.Status, Events: make([]Event, len(s.Events)), Created: s.Created, Updated: s.Updated, Metadata: make(map[string]string, len(s.Metadata))}
	copy(clone.Events, s.Events)
	for k, v := range s.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}

// SessionStore persists sessions and their event history. Get returns an
// error wrapping ErrNotFound for unknown ids; AppendEvent creates the
// session on first use.
type SessionStore interface {
	Create(ctx context.Context, id string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	AppendEvent(ctx context.Context, sessionID string, event Event) error
	UpdateTitle(ctx context.Context, sessionID, title string) error
	UpdateStatus(ctx context.Context, sessionID string, status SessionStatus) error
	Delete(ctx context.Context, sessionID string) error
}
