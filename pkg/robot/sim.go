package robot

import (
	"context"
	"fmt"
	"sync"

	"github.com/teslashibe/reachy-companion/internal/log"
)

// SimMover logs movements instead of driving hardware. It records every
// call so tests can assert on the movement history.
type SimMover struct {
	mu      sync.Mutex
	history []string
}

// NewSimMover creates a simulated mover.
func NewSimMover() *SimMover {
	return &SimMover{}
}

func (m *SimMover) record(entry string) {
	m.mu.Lock()
	m.history = append(m.history, entry)
	m.mu.Unlock()
}

// History returns a copy of recorded movements in call order.
func (m *SimMover) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

func (m *SimMover) Express(_ context.Context, action string, intensity float64) (string, error) {
	if _, ok := expressions[action]; !ok {
		return unknownExpression(action), nil
	}
	intensity = clampIntensity(intensity)
	log.Info("simulated expression", "action", action, "intensity", intensity)
	m.record(fmt.Sprintf("express:%s:%.1f", action, intensity))
	return fmt.Sprintf("Performed %s", action), nil
}

func (m *SimMover) LookAt(_ context.Context, direction string) (string, error) {
	if _, ok := lookDirections[direction]; !ok {
		return unknownDirection(direction), nil
	}
	log.Info("simulated look", "direction", direction)
	m.record("look:" + direction)
	return fmt.Sprintf("Looking %s", direction), nil
}

func (m *SimMover) WakeUp(_ context.Context) error {
	log.Info("simulated wake animation")
	m.record("wake")
	return nil
}

func (m *SimMover) Sleep(_ context.Context) error {
	log.Info("simulated sleep animation")
	m.record("sleep")
	return nil
}

func (m *SimMover) Close() error { return nil }
