package captioning

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a captioning session.
type State int

const (
	// StateActive - Session accepts recognition events.
	StateActive State = iota
	// StateStopped - Recognizer delivered every result. Terminal.
	StateStopped
	// StateCanceled - Recognizer or caller aborted the session. Terminal.
	StateCanceled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateStopped:
		return "STOPPED"
	case StateCanceled:
		return "CANCELED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (STOPPED or CANCELED).
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateCanceled
}

// ErrSessionEnded is returned for events that arrive after the session ended.
var ErrSessionEnded = errors.New("captioning session has ended")

// Lifecycle manages the state machine for a single session and numbers its
// utterances. Thread-safe for concurrent access.
//
// State transitions:
//
//	ACTIVE ──Stop()───→ STOPPED
//	   │
//	   └────Cancel()──→ CANCELED
//
// Utterance IDs have the form <sessionId>-utt-<n>, starting at 1. The number
// advances when a final result closes the current utterance.
type Lifecycle struct {
	mu        sync.RWMutex
	sessionId string
	state     State
	utterance int
}

// NewLifecycle creates a new session lifecycle in ACTIVE state.
func NewLifecycle(sessionId string) *Lifecycle {
	return &Lifecycle{
		sessionId: sessionId,
		state:     StateActive,
		utterance: 1,
	}
}

// SessionId returns the session ID.
func (l *Lifecycle) SessionId() string {
	return l.sessionId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsEnded returns true if the session is in a terminal state.
func (l *Lifecycle) IsEnded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// Accept returns ErrSessionEnded once the session is in a terminal state.
func (l *Lifecycle) Accept() error {
	if l.IsEnded() {
		return ErrSessionEnded
	}
	return nil
}

// UtteranceId returns the ID of the utterance currently being recognized.
func (l *Lifecycle) UtteranceId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.utteranceId()
}

// CloseUtterance returns the ID of the current utterance and moves on to the next.
func (l *Lifecycle) CloseUtterance() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.utteranceId()
	l.utterance++
	return id
}

func (l *Lifecycle) utteranceId() string {
	return fmt.Sprintf("%s-utt-%d", l.sessionId, l.utterance)
}

// Stop transitions to STOPPED. Returns false if already in a terminal state.
func (l *Lifecycle) Stop() bool {
	return l.end(StateStopped)
}

// Cancel transitions to CANCELED. Returns false if already in a terminal state.
func (l *Lifecycle) Cancel() bool {
	return l.end(StateCanceled)
}

func (l *Lifecycle) end(to State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = to
	return true
}
