// Package celebrate implements the celebration signal fired when a task is
// completed. The signal carries no payload and has no bearing on data state;
// it exists for the presentation layer.
package celebrate

import (
	"sync"
	"time"
)

// DefaultDuration is how long the signal stays active before auto-clearing.
const DefaultDuration = 2 * time.Second

// Signal is a transient flag that auto-clears after a fixed duration.
// Triggering while active restarts the clock.
type Signal struct {
	mu       sync.Mutex
	active   bool
	seq      int
	duration time.Duration
}

// New creates a signal with the default 2-second duration.
func New() *Signal {
	return NewWithDuration(DefaultDuration)
}

// NewWithDuration creates a signal with a custom duration (tests).
func NewWithDuration(d time.Duration) *Signal {
	return &Signal{duration: d}
}

// Trigger activates the signal and schedules the auto-clear.
func (s *Signal) Trigger() {
	s.mu.Lock()
	s.active = true
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	time.AfterFunc(s.duration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// A newer trigger restarted the clock; leave it active.
		if s.seq == seq {
			s.active = false
		}
	})
}

// Active reports whether the signal is currently showing.
func (s *Signal) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
