package memory

import (
	"slices"
	"sync"

	"github.com/hupe1980/planact/model"
)

// RemovedPlaceholder replaces compacted tool output.
const RemovedPlaceholder = "(removed)"

// DefaultCompactable lists the functions whose results are bulky and can be
// reproduced by calling the tool again, so compaction may drop them.
var DefaultCompactable = []string{"file_read", "file_find_in_content", "file_find_by_name", "file_list"}

// Memory is the ordered transcript an agent replays to the model on every
// turn. Messages are never removed except through RollBack; Compact only
// rewrites content.
//
// Concurrency: protected by RWMutex. Agents still own their memory
// exclusively; the lock only guards readers such as event recorders.
type Memory struct {
	mu          sync.RWMutex
	messages    []model.Message
	compactable map[string]struct{}
}

// Option configures a Memory.
type Option func(m *Memory)

// WithCompactable overrides the set of function names whose tool results Compact replaces.
func WithCompactable(names ...string) Option {
	return func(m *Memory) {
		m.compactable = make(map[string]struct{}, len(names))
		for _, n := range names {
			m.compactable[n] = struct{}{}
		}
	}
}

// New creates an empty Memory.
func New(opts ...Option) *Memory {
	m := &Memory{}
	WithCompactable(DefaultCompactable...)(m)

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// AddMessage appends one message.
func (m *Memory) AddMessage(msg model.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, msg)
}

// AddMessages appends several messages in order.
func (m *Memory) AddMessages(msgs ...model.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, msgs...)
}

// Messages returns a copy of the transcript.
func (m *Memory) Messages() []model.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.messages)
}

// Last returns the most recent message, if any.
func (m *Memory) Last() (model.Message, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.messages) == 0 {
		return model.Message{}, false
	}

	return m.messages[len(m.messages)-1], true
}

// RollBack drops the most recent message. It is a no-op on an empty memory.
func (m *Memory) RollBack() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.messages) > 0 {
		m.messages = m.messages[:len(m.messages)-1]
	}
}

// Compact replaces the content of tool messages produced by compactable
// functions with RemovedPlaceholder and returns how many were rewritten.
// Calling it again rewrites nothing new.
func (m *Memory) Compact() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0

	for i := range m.messages {
		msg := &m.messages[i]
		if msg.Role != model.RoleTool || msg.Content == RemovedPlaceholder {
			continue
		}

		if _, ok := m.compactable[msg.Name]; ok {
			msg.Content = RemovedPlaceholder
			n++
		}
	}

	return n
}

// Len returns the number of messages.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.messages)
}

// Empty reports whether the memory holds no messages.
func (m *Memory) Empty() bool { return m.Len() == 0 }
