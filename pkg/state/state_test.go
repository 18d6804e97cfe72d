package state

import (
	"testing"
	"time"
)

func TestTransitionTable(t *testing.T) {
	valid := []struct {
		from  Phase
		event Event
		to    Phase
	}{
		{Setup, SetupComplete, Sleeping},
		{Sleeping, WakeWordDetected, Waking},
		{Waking, SessionReady, Active},
		{Waking, Error, Sleeping},
		{Active, SilenceTimeout, Cooldown},
		{Active, MaxDuration, Cooldown},
		{Active, Error, Cooldown},
		{Cooldown, CooldownComplete, Sleeping},
		{Cooldown, Error, Sleeping},
	}

	for _, tt := range valid {
		t.Run(tt.from.String()+"+"+tt.event.String(), func(t *testing.T) {
			m := New()
			m.phase = tt.from

			got, err := m.Apply(tt.event)
			if err != nil {
				t.Fatalf("Apply(%s) from %s: unexpected error: %v", tt.event, tt.from, err)
			}
			if got != tt.to {
				t.Errorf("Apply(%s) from %s = %s, want %s", tt.event, tt.from, got, tt.to)
			}
		})
	}
}

func TestInvalidTransitionsFail(t *testing.T) {
	phases := []Phase{Setup, Sleeping, Waking, Active, Cooldown}
	events := []Event{SetupComplete, WakeWordDetected, SessionReady, SilenceTimeout, MaxDuration, CooldownComplete, Error}

	for _, from := range phases {
		for _, event := range events {
			if _, ok := transitions[transitionKey{from, event}]; ok {
				continue
			}

			m := New()
			m.phase = from

			if _, err := m.Apply(event); err == nil {
				t.Errorf("Apply(%s) from %s: expected error, got nil", event, from)
			}
			if m.Phase() != from {
				t.Errorf("Apply(%s) from %s: phase changed to %s", event, from, m.Phase())
			}
		}
	}
}

func TestFullCycle(t *testing.T) {
	m := New()

	cycle := []struct {
		event Event
		want  Phase
	}{
		{SetupComplete, Sleeping},
		{WakeWordDetected, Waking},
		{SessionReady, Active},
		{SilenceTimeout, Cooldown},
		{CooldownComplete, Sleeping},
		// Second round via MaxDuration to show repeatability.
		{WakeWordDetected, Waking},
		{SessionReady, Active},
		{MaxDuration, Cooldown},
		{CooldownComplete, Sleeping},
	}

	for _, step := range cycle {
		got, err := m.Apply(step.event)
		if err != nil {
			t.Fatalf("Apply(%s): %v", step.event, err)
		}
		if got != step.want {
			t.Fatalf("Apply(%s) = %s, want %s", step.event, got, step.want)
		}
		if m.TimeInPhase() > 100*time.Millisecond {
			t.Errorf("TimeInPhase after %s = %v, expected near zero", step.event, m.TimeInPhase())
		}
	}
}

func TestObserversInvokedInOrder(t *testing.T) {
	m := New()

	var order []int
	m.Subscribe(func(from Phase, event Event, to Phase) {
		order = append(order, 1)
		if from != Setup || event != SetupComplete || to != Sleeping {
			t.Errorf("observer got (%s, %s, %s)", from, event, to)
		}
	})
	m.Subscribe(func(Phase, Event, Phase) {
		order = append(order, 2)
	})

	if _, err := m.Apply(SetupComplete); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("observer order = %v, want [1 2]", order)
	}
}

func TestObserverNotInvokedOnInvalidEvent(t *testing.T) {
	m := New()

	called := false
	m.Subscribe(func(Phase, Event, Phase) { called = true })

	if _, err := m.Apply(WakeWordDetected); err == nil {
		t.Fatal("expected error for Setup + wake_word_detected")
	}
	if called {
		t.Error("observer called on invalid transition")
	}
}
