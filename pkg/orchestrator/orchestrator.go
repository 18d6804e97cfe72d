// Package orchestrator drives the companion lifecycle: listen for the
// wake word, run one live conversation at a time, and return to sleep
// when the user goes quiet or the session hits its duration cap.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/reachy-companion/internal/httpc"
	"github.com/teslashibe/reachy-companion/internal/log"
	"github.com/teslashibe/reachy-companion/pkg/audioio"
	"github.com/teslashibe/reachy-companion/pkg/bridge"
	"github.com/teslashibe/reachy-companion/pkg/config"
	"github.com/teslashibe/reachy-companion/pkg/cost"
	"github.com/teslashibe/reachy-companion/pkg/live"
	"github.com/teslashibe/reachy-companion/pkg/robot"
	"github.com/teslashibe/reachy-companion/pkg/state"
	"github.com/teslashibe/reachy-companion/pkg/tools"
	"github.com/teslashibe/reachy-companion/pkg/vad"
	"github.com/teslashibe/reachy-companion/pkg/wake"
)

// wakePollPause bounds the sleeping-phase poll loop.
const wakePollPause = 20 * time.Millisecond

// ErrBudgetExhausted means the daily spend cap leaves no room for a
// new session.
var ErrBudgetExhausted = errors.New("daily budget exhausted")

// conversation is the slice of live.Session the active phase needs.
// Tests substitute a scripted fake.
type conversation interface {
	Run(ctx context.Context) error
	EnqueueAudio(pcm []byte)
	NextPlaybackChunk(ctx context.Context) ([]byte, error)
	OnToolCall(live.ToolCallHandler)
	OnTranscript(fn func(speaker, text string, final bool))
	OnUsage(fn func(live.Usage))
}

// Orchestrator owns the state machine and all collaborators.
type Orchestrator struct {
	cfg        config.Config
	machine    *state.Machine
	endpoint   audioio.Endpoint
	mover      robot.Mover
	detector   wake.Detector
	dispatcher *tools.RobotDispatcher
	tracker    *cost.Tracker

	// newSession and probe are replaceable for tests.
	newSession func(cfg live.Config) (conversation, error)
	probe      func(ctx context.Context, apiKey string) error

	// OnToolCall and OnTranscript mirror session activity to the
	// dashboard. Optional.
	OnToolCall   func(name string)
	OnTranscript func(speaker, text string)
}

// New wires an orchestrator from configuration and collaborators.
func New(cfg config.Config, endpoint audioio.Endpoint, mover robot.Mover, detector wake.Detector, dispatcher *tools.RobotDispatcher, tracker *cost.Tracker) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		machine:    state.New(),
		endpoint:   endpoint,
		mover:      mover,
		detector:   detector,
		dispatcher: dispatcher,
		tracker:    tracker,
		newSession: func(lc live.Config) (conversation, error) {
			return live.New(lc)
		},
		probe: probeCredentials,
	}
}

// Machine exposes the state machine for observers (dashboard).
func (o *Orchestrator) Machine() *state.Machine { return o.machine }

// Run executes the lifecycle until ctx is cancelled or a permanent
// error escapes the setup phase. External resources are released on
// the way out.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.shutdown()

	for ctx.Err() == nil {
		var err error
		switch o.machine.Phase() {
		case state.Setup:
			err = o.handleSetup()
		case state.Sleeping:
			err = o.handleSleeping(ctx)
		case state.Waking:
			err = o.handleWaking(ctx)
		case state.Active:
			err = o.handleActive(ctx)
		case state.Cooldown:
			err = o.handleCooldown(ctx)
		}

		if err != nil && ctx.Err() == nil {
			o.fault(err)
		}
	}
	return nil
}

// fault converts a phase-handler error into the Error event where the
// current phase allows it; otherwise the phase already moved on and the
// error is only logged.
func (o *Orchestrator) fault(err error) {
	log.Error("phase handler failed", "phase", o.machine.Phase().String(), "error", err)
	if o.machine.CanApply(state.Error) {
		if _, aerr := o.machine.Apply(state.Error); aerr != nil {
			log.Error("error transition rejected", "error", aerr)
		}
	}
}

func (o *Orchestrator) handleSetup() error {
	log.Info("companion ready", "wake_backend", o.cfg.Wake.Backend, "simulate", o.cfg.Reachy.Simulate)
	_, err := o.machine.Apply(state.SetupComplete)
	return err
}

// handleSleeping polls the microphone through the wake detector until
// it fires or ctx is cancelled.
func (o *Orchestrator) handleSleeping(ctx context.Context) error {
	o.detector.Reset()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		chunk, err := o.endpoint.CaptureSample(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("wake capture error", "error", err)
			if !sleepFor(ctx, 100*time.Millisecond) {
				return nil
			}
			continue
		}

		if len(chunk.Samples) == 0 {
			if !sleepFor(ctx, wakePollPause) {
				return nil
			}
			continue
		}

		det, err := o.detector.ProcessAudio(chunk.Mono())
		if err != nil {
			log.Error("wake detection error", "error", err)
			continue
		}
		if det.Detected {
			log.Info("wake word detected", "confidence", fmt.Sprintf("%.2f", det.Confidence))
			_, err := o.machine.Apply(state.WakeWordDetected)
			return err
		}
	}
}

// handleWaking verifies credentials and budget, plays the wake
// animation and opens a cost session.
func (o *Orchestrator) handleWaking(ctx context.Context) error {
	if err := o.probe(ctx, o.cfg.GoogleAPIKey); err != nil {
		return fmt.Errorf("credential check failed (verify GOOGLE_API_KEY, keys are issued at aistudio.google.com): %w", err)
	}

	ok, err := o.tracker.CheckBudget()
	if err != nil {
		return fmt.Errorf("budget check failed: %w", err)
	}
	if !ok {
		return ErrBudgetExhausted
	}

	if err := o.mover.WakeUp(ctx); err != nil {
		log.Warn("wake animation failed", "error", err)
	}

	sessionUUID, err := o.tracker.StartSession()
	if err != nil {
		return err
	}
	log.Info("session starting", "session", sessionUUID)

	_, err = o.machine.Apply(state.SessionReady)
	return err
}

// handleActive runs one conversation: the live session, both bridge
// loops, a silence detector on the capture path and a duration
// monitor. The first of them to finish brings the whole group down.
func (o *Orchestrator) handleActive(ctx context.Context) error {
	session, err := o.newSession(o.liveConfig())
	if err != nil {
		if _, eerr := o.tracker.EndSession(); eerr != nil {
			log.Error("cost tracking close failed", "error", eerr)
		}
		return err
	}

	session.OnToolCall(func(ctx context.Context, name string, args map[string]any) (string, error) {
		if o.OnToolCall != nil {
			o.OnToolCall(name)
		}
		return o.dispatcher.Handle(ctx, name, args)
	})
	session.OnTranscript(func(speaker, text string, final bool) {
		if final && o.OnTranscript != nil {
			o.OnTranscript(speaker, text)
		}
	})
	session.OnUsage(func(u live.Usage) {
		o.tracker.RecordUsage(u.PromptTokens, u.ResponseTokens)
		log.Debug("usage update", "total_tokens", u.TotalTokens)
	})

	silence := vad.NewSilenceDetector(o.cfg.Session.SilenceTimeout(), o.cfg.Session.SilenceRMSThreshold)
	br := bridge.New(o.endpoint, o.cfg.Gemini.OutputSampleRate)
	inputRate := float64(o.cfg.Gemini.InputSampleRate)

	start := time.Now()
	var hitCap atomic.Bool
	var sessionErr error

	group, gctx := errgroup.WithContext(ctx)
	gctx, stop := context.WithCancel(gctx)
	defer stop()

	group.Go(func() error {
		sessionErr = session.Run(gctx)
		stop()
		return nil
	})

	group.Go(func() error {
		return br.CaptureLoop(gctx, func(pcm []byte) {
			session.EnqueueAudio(pcm)
			samples := audioio.BytesToSamples(pcm)
			o.tracker.AddInputAudio(float64(len(samples)) / inputRate)
			if silence.Process(samples, time.Now()) {
				log.Info("silence timeout reached")
				stop()
			}
		})
	})

	group.Go(func() error {
		return br.PlaybackLoop(gctx, func(ctx context.Context) ([]byte, error) {
			data, err := session.NextPlaybackChunk(ctx)
			if err != nil {
				if errors.Is(err, live.ErrSessionClosed) {
					return nil, io.EOF
				}
				return nil, err
			}
			o.tracker.AddOutputAudio(float64(len(data)/2) / float64(o.cfg.Gemini.OutputSampleRate))
			return data, nil
		})
	})

	group.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if time.Since(start) >= o.cfg.Session.MaxDuration() {
					log.Info("session duration cap reached")
					hitCap.Store(true)
					stop()
					return nil
				}
			}
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("session group error", "error", err)
	}

	if sessionErr != nil && !errors.Is(sessionErr, context.Canceled) {
		if live.IsPermanent(sessionErr) {
			log.Error("session failed permanently (verify GOOGLE_API_KEY and quota at aistudio.google.com)", "error", sessionErr)
		} else {
			log.Error("session ended with error", "error", sessionErr)
		}
	}

	spent, err := o.tracker.EndSession()
	if err != nil {
		log.Error("cost tracking close failed", "error", err)
	}
	log.Info("session over",
		"duration_sec", fmt.Sprintf("%.1f", time.Since(start).Seconds()),
		"cost_usd", fmt.Sprintf("%.4f", spent))

	event := state.SilenceTimeout
	if hitCap.Load() || time.Since(start) >= o.cfg.Session.MaxDuration() {
		event = state.MaxDuration
	}
	_, err = o.machine.Apply(event)
	return err
}

// handleCooldown plays the sleep animation and waits out the cooldown.
func (o *Orchestrator) handleCooldown(ctx context.Context) error {
	if err := o.mover.Sleep(ctx); err != nil {
		log.Warn("sleep animation failed", "error", err)
	}

	if !sleepFor(ctx, o.cfg.Session.Cooldown()) {
		return nil
	}

	_, err := o.machine.Apply(state.CooldownComplete)
	return err
}

func (o *Orchestrator) liveConfig() live.Config {
	return live.Config{
		APIKey:       o.cfg.GoogleAPIKey,
		Model:        o.cfg.Gemini.Model,
		Voice:        o.cfg.Gemini.Voice,
		SystemPrompt: o.cfg.Prompt.SystemPrompt(),
		Tools:        o.dispatcher.Declarations(),
	}
}

func (o *Orchestrator) shutdown() {
	log.Info("orchestrator shutting down")
	if err := o.mover.Close(); err != nil {
		log.Warn("robot close failed", "error", err)
	}
	if err := o.endpoint.Close(); err != nil {
		log.Warn("audio endpoint close failed", "error", err)
	}
}

// probeCredentials makes a lightweight authenticated call to confirm
// the API key works before paying for a session.
func probeCredentials(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return live.ErrMissingAPIKey
	}

	url := "https://generativelanguage.googleapis.com/v1beta/models?pageSize=1&key=" + apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("credentials rejected: %s", resp.Status)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("capability probe failed: %s", resp.Status)
	}
	return nil
}

func sleepFor(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
