package core

import (
	"fmt"
)

// IterationLimiter bounds the number of tool-calling cycles of one agent invocation.
// A fresh limiter is created per invocation, so it is not shared between goroutines.
type IterationLimiter struct {
	max   int
	count int
}

// NewIterationLimiter creates a limiter allowing max cycles.
// If max <= 0, unlimited cycles are allowed.
func NewIterationLimiter(max int) *IterationLimiter {
	return &IterationLimiter{max: max}
}

// Increment records one cycle and returns an error once the limit is exceeded.
func (l *IterationLimiter) Increment() error {
	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("exceeded max iterations: %d", l.max)
	}

	return nil
}

// Count returns the number of cycles recorded so far.
func (l *IterationLimiter) Count() int { return l.count }

// Max returns the configured limit.
func (l *IterationLimiter) Max() int { return l.max }
