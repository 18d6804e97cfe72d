package robot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/teslashibe/reachy-companion/internal/httpc"
	"github.com/teslashibe/reachy-companion/internal/log"
)

// HTTPMover drives the robot through the daemon's HTTP API on port 8000.
type HTTPMover struct {
	baseURL string
	client  *http.Client
	speed   float64
}

// NewHTTPMover creates a mover targeting the daemon at robotIP.
// speed scales choreography tempo; values <= 0 mean normal speed.
func NewHTTPMover(robotIP string, speed float64) *HTTPMover {
	if speed <= 0 {
		speed = 1.0
	}
	return &HTTPMover{
		baseURL: fmt.Sprintf("http://%s:8000", robotIP),
		client:  httpc.NewClient(2 * time.Second),
		speed:   speed,
	}
}

type moveTarget struct {
	HeadPose *map[string]float64 `json:"target_head_pose"`
	Antennas *[2]float64         `json:"target_antennas"`
	BodyYaw  *float64            `json:"target_body_yaw"`
	Duration float64             `json:"duration"`
}

// Express plays the named choreography step by step, blocking for each
// step's duration so the daemon can interpolate between targets.
func (m *HTTPMover) Express(ctx context.Context, action string, intensity float64) (string, error) {
	steps, ok := expressions[action]
	if !ok {
		return unknownExpression(action), nil
	}

	intensity = clampIntensity(intensity)
	log.Info("expressing", "action", action, "intensity", intensity)

	if err := m.play(ctx, steps, intensity); err != nil {
		return "", err
	}
	return fmt.Sprintf("Performed %s", action), nil
}

// LookAt turns the head toward a named direction.
func (m *HTTPMover) LookAt(ctx context.Context, direction string) (string, error) {
	pose, ok := lookDirections[direction]
	if !ok {
		return unknownDirection(direction), nil
	}

	log.Info("looking", "direction", direction)

	step := Step{Head: pose, Duration: 500 * time.Millisecond}
	if err := m.sendStep(ctx, step); err != nil {
		return "", err
	}
	return fmt.Sprintf("Looking %s", direction), nil
}

// WakeUp plays the wake animation.
func (m *HTTPMover) WakeUp(ctx context.Context) error {
	log.Info("wake animation")
	return m.play(ctx, wakeSteps, 1.0)
}

// Sleep plays the sleep animation.
func (m *HTTPMover) Sleep(ctx context.Context) error {
	log.Info("sleep animation")
	return m.play(ctx, sleepSteps, 1.0)
}

// Close releases idle connections to the daemon.
func (m *HTTPMover) Close() error {
	m.client.CloseIdleConnections()
	return nil
}

func (m *HTTPMover) play(ctx context.Context, steps []Step, intensity float64) error {
	for _, step := range steps {
		scaled := step.scaled(intensity)
		scaled.Duration = time.Duration(float64(scaled.Duration) / m.speed)
		if err := m.sendStep(ctx, scaled); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(scaled.Duration):
		}
	}
	return nil
}

func (m *HTTPMover) sendStep(ctx context.Context, step Step) error {
	head := map[string]float64{
		"roll":  step.Head.Roll,
		"pitch": step.Head.Pitch,
		"yaw":   step.Head.Yaw,
	}
	antennas := step.Antennas
	bodyYaw := step.BodyYaw

	payload := moveTarget{
		HeadPose: &head,
		Antennas: &antennas,
		BodyYaw:  &bodyYaw,
		Duration: step.Duration.Seconds(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal move payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/move/set_target", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build move request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("move request failed: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("move request rejected: %s", resp.Status)
	}
	return nil
}
