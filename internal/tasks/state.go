package tasks

import (
	"sync"
	"time"
)

// State is the scheduler lifecycle. Stopped is terminal.
type State int32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return ""
	}
}

// StopReason explains why a session ended.
type StopReason string

const (
	ReasonQueueExhausted StopReason = "queue_exhausted"
	ReasonPlaybackEnded  StopReason = "playback_ended"
	ReasonTimeout        StopReason = "timeout"
	ReasonStopped        StopReason = "stopped"
	ReasonInternalError  StopReason = "internal_error"
)

// Result is the terminal report of a session.
type Result struct {
	Reason    StopReason
	Err       error
	Cycles    int
	Injected  int
	Failures  int
	StartedAt time.Time
	EndedAt   time.Time
}

// Duration is the wall time the loop ran for.
func (r Result) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Failed reports whether the session ended because of an unexpected error.
func (r Result) Failed() bool {
	return r.Reason == ReasonInternalError
}

// InjectionState tracks what was injected and what is playing.
//
// The latch is set by a successful injection and cleared when the playing track changes.
type InjectionState struct {
	mu           sync.Mutex
	lastInjected string
	lastPlaying  string
	latched      bool
}

// Observe records the playing identifier and clears the latch on a change.
//
// An empty identifier is ignored. It reports whether a change was detected and the previous value.
func (s *InjectionState) Observe(uri string) (changed bool, previous string) {
	if uri == "" {
		return false, ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if uri == s.lastPlaying {
		return false, s.lastPlaying
	}
	previous = s.lastPlaying
	s.lastPlaying = uri
	s.latched = false
	return true, previous
}

// MarkInjected sets the latch and records uri as the last injected item.
func (s *InjectionState) MarkInjected(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastInjected = uri
	s.latched = true
}

// SetLastInjected records uri without touching the latch.
func (s *InjectionState) SetLastInjected(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastInjected = uri
}

func (s *InjectionState) Latched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latched
}

func (s *InjectionState) LastInjected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInjected
}

func (s *InjectionState) LastPlaying() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPlaying
}
