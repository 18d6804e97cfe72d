// Package robot provides movement control for the Reachy Mini robot.
//
// The Mover interface is the only surface the rest of the application
// depends on. HTTPMover talks to the robot daemon's HTTP API; SimMover
// logs movements without hardware, for development and tests.
package robot

import "context"

// Mover executes expressions and head movements.
type Mover interface {
	// Express plays a named choreography. Intensity scales joint
	// targets (0.0-2.0, 1.0 = as authored). Unknown actions return a
	// descriptive result string rather than an error so the caller can
	// relay it to the model.
	Express(ctx context.Context, action string, intensity float64) (string, error)

	// LookAt turns the head toward a named direction
	// (left, right, up, down, center, user).
	LookAt(ctx context.Context, direction string) (string, error)

	// WakeUp plays the wake animation: head lifts, antennas perk.
	WakeUp(ctx context.Context) error

	// Sleep plays the sleep animation: head and antennas droop.
	Sleep(ctx context.Context) error

	Close() error
}

var (
	_ Mover = (*HTTPMover)(nil)
	_ Mover = (*SimMover)(nil)
)
