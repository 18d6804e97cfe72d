// Package state implements the companion's top-level lifecycle state machine.
//
// The machine moves through Setup -> Sleeping -> Waking -> Active -> Cooldown
// and back to Sleeping. Transitions happen only through Apply; events that
// are not valid for the current phase fail rather than silently no-op.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/reachy-companion/internal/log"
)

// Phase is one of the five top-level lifecycle states.
type Phase int

const (
	Setup Phase = iota
	Sleeping
	Waking
	Active
	Cooldown
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Setup:
		return "setup"
	case Sleeping:
		return "sleeping"
	case Waking:
		return "waking"
	case Active:
		return "active"
	case Cooldown:
		return "cooldown"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Event is an input to the transition function.
type Event int

const (
	SetupComplete Event = iota
	WakeWordDetected
	SessionReady
	SilenceTimeout
	MaxDuration
	CooldownComplete
	Error
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case SetupComplete:
		return "setup_complete"
	case WakeWordDetected:
		return "wake_word_detected"
	case SessionReady:
		return "session_ready"
	case SilenceTimeout:
		return "silence_timeout"
	case MaxDuration:
		return "max_duration"
	case CooldownComplete:
		return "cooldown_complete"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

type transitionKey struct {
	from  Phase
	event Event
}

// transitions is the static table of valid (phase, event) -> phase pairs.
// It is never mutated at runtime.
var transitions = map[transitionKey]Phase{
	{Setup, SetupComplete}:       Sleeping,
	{Sleeping, WakeWordDetected}: Waking,
	{Waking, SessionReady}:       Active,
	{Waking, Error}:              Sleeping,
	{Active, SilenceTimeout}:     Cooldown,
	{Active, MaxDuration}:        Cooldown,
	{Active, Error}:              Cooldown,
	{Cooldown, CooldownComplete}: Sleeping,
	{Cooldown, Error}:            Sleeping,
}

// Observer is notified synchronously after each successful transition.
type Observer func(from Phase, event Event, to Phase)

// Machine is the companion lifecycle state machine.
// It is safe for concurrent use.
type Machine struct {
	mu        sync.Mutex
	phase     Phase
	enteredAt time.Time
	observers []Observer
}

// New creates a Machine starting in the Setup phase.
func New() *Machine {
	return &Machine{
		phase:     Setup,
		enteredAt: time.Now(),
	}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// TimeInPhase returns how long the machine has been in the current phase.
func (m *Machine) TimeInPhase() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.enteredAt)
}

// Subscribe registers an observer. Observers are invoked synchronously, in
// registration order, before Apply returns.
func (m *Machine) Subscribe(obs Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, obs)
}

// Apply processes an event and transitions if the (phase, event) pair is in
// the transition table. It returns the new phase, or an error leaving the
// phase unchanged when the pair is invalid.
func (m *Machine) Apply(event Event) (Phase, error) {
	m.mu.Lock()
	from := m.phase
	to, ok := transitions[transitionKey{from, event}]
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("state: invalid transition: %s + %s", from, event)
	}

	m.phase = to
	m.enteredAt = time.Now()
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	log.Info("state transition", "from", from.String(), "to", to.String(), "event", event.String())

	for _, obs := range observers {
		obs(from, event, to)
	}

	return to, nil
}

// CanApply reports whether the event is valid for the current phase.
func (m *Machine) CanApply(event Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := transitions[transitionKey{m.phase, event}]
	return ok
}
