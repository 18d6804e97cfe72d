package orchestrator

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/reachy-companion/pkg/audioio"
	"github.com/teslashibe/reachy-companion/pkg/config"
	"github.com/teslashibe/reachy-companion/pkg/cost"
	"github.com/teslashibe/reachy-companion/pkg/live"
	"github.com/teslashibe/reachy-companion/pkg/robot"
	"github.com/teslashibe/reachy-companion/pkg/state"
	"github.com/teslashibe/reachy-companion/pkg/tools"
	"github.com/teslashibe/reachy-companion/pkg/wake"
)

// fakeConversation satisfies the conversation interface without a
// network. Run blocks until the context ends or finish is closed.
type fakeConversation struct {
	runErr error
	finish chan struct{}

	mu      sync.Mutex
	audio   [][]byte
	usageFn func(live.Usage)
}

func newFakeConversation() *fakeConversation {
	return &fakeConversation{finish: make(chan struct{})}
}

func (f *fakeConversation) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-f.finish:
	}
	return f.runErr
}

func (f *fakeConversation) EnqueueAudio(pcm []byte) {
	f.mu.Lock()
	f.audio = append(f.audio, pcm)
	f.mu.Unlock()
}

func (f *fakeConversation) NextPlaybackChunk(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeConversation) OnToolCall(live.ToolCallHandler)                     {}
func (f *fakeConversation) OnTranscript(func(speaker, text string, final bool)) {}

func (f *fakeConversation) OnUsage(fn func(live.Usage)) {
	f.mu.Lock()
	f.usageFn = fn
	f.mu.Unlock()
}

func (f *fakeConversation) usageCallback() func(live.Usage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usageFn
}

func (f *fakeConversation) audioBlocks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.audio)
}

type transition struct {
	event state.Event
	to    state.Phase
}

type harness struct {
	orch     *Orchestrator
	detector *wake.MockDetector
	mover    *robot.SimMover
	conv     *fakeConversation
	tracker  *cost.Tracker
	phases   chan transition
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.GoogleAPIKey = "test-key"
	cfg.Session.SilenceTimeoutSec = 1
	cfg.Session.CooldownSec = 0
	cfg.Prompt.ProfilesDir = t.TempDir() // no profile files, defaults apply
	if mutate != nil {
		mutate(&cfg)
	}

	endpoint := audioio.NewMockEndpoint(16000, 320, audioio.WithCaptureInterval(5*time.Millisecond))
	mover := robot.NewSimMover()
	detector := wake.NewMockDetector()
	dispatcher := tools.NewRobotDispatcher(mover, nil)
	tracker := cost.NewTracker(nil, cost.DefaultPricing(), cfg.Cost.DailyBudgetUSD)

	h := &harness{
		orch:     New(cfg, endpoint, mover, detector, dispatcher, tracker),
		detector: detector,
		mover:    mover,
		conv:     newFakeConversation(),
		tracker:  tracker,
		phases:   make(chan transition, 64),
	}
	h.orch.probe = func(ctx context.Context, apiKey string) error { return nil }
	h.orch.newSession = func(live.Config) (conversation, error) { return h.conv, nil }
	h.orch.Machine().Subscribe(func(from state.Phase, event state.Event, to state.Phase) {
		h.phases <- transition{event: event, to: to}
	})
	return h
}

// awaitPhase consumes transitions until the wanted phase is reached and
// returns the events seen along the way, the last one included.
func (h *harness) awaitPhase(t *testing.T, want state.Phase, timeout time.Duration) []state.Event {
	t.Helper()
	deadline := time.After(timeout)
	var events []state.Event
	for {
		select {
		case tr := <-h.phases:
			events = append(events, tr.event)
			if tr.to == want {
				return events
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase %v", want)
		}
	}
}

func TestFullCycleSilenceTimeout(t *testing.T) {
	h := newHarness(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.orch.Run(ctx)
	}()

	h.awaitPhase(t, state.Sleeping, time.Second)
	h.detector.Trigger()
	h.awaitPhase(t, state.Active, 2*time.Second)

	// The mock endpoint captures silence, so the silence detector
	// should end the session after the 1s timeout.
	h.awaitPhase(t, state.Cooldown, 5*time.Second)
	h.awaitPhase(t, state.Sleeping, 2*time.Second)

	if h.conv.audioBlocks() == 0 {
		t.Error("capture loop should have forwarded audio to the session")
	}

	history := h.mover.History()
	if len(history) < 2 || history[0] != "wake" || history[len(history)-1] != "sleep" {
		t.Errorf("mover history = %v, want wake animation then sleep animation", history)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not shut down")
	}
}

func TestMaxDurationEndsSession(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Session.MaxDurationSec = 1
		cfg.Session.SilenceTimeoutSec = 60
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.orch.Run(ctx) }()

	h.awaitPhase(t, state.Sleeping, time.Second)
	h.detector.Trigger()
	h.awaitPhase(t, state.Active, 2*time.Second)
	events := h.awaitPhase(t, state.Cooldown, 5*time.Second)

	if len(events) == 0 || events[len(events)-1] != state.MaxDuration {
		t.Errorf("events = %v, want max-duration ending the session", events)
	}
}

func TestServerUsageFeedsCostTracking(t *testing.T) {
	h := newHarness(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.orch.Run(ctx) }()

	h.awaitPhase(t, state.Sleeping, time.Second)
	h.detector.Trigger()
	h.awaitPhase(t, state.Active, 2*time.Second)

	// The usage callback is registered shortly after entering Active.
	var report func(live.Usage)
	deadline := time.Now().Add(2 * time.Second)
	for report == nil && time.Now().Before(deadline) {
		report = h.conv.usageCallback()
		time.Sleep(5 * time.Millisecond)
	}
	if report == nil {
		t.Fatal("usage callback never registered")
	}

	report(live.Usage{PromptTokens: 2000, ResponseTokens: 1000, TotalTokens: 3000})

	pricing := cost.DefaultPricing()
	want := 2000.0/1e6*pricing.InputAudioPerMillion + 1000.0/1e6*pricing.OutputAudioPerMillion
	if got := h.tracker.Estimate(); math.Abs(got-want) > 1e-9 {
		t.Errorf("estimate = %v, want %v from reported token counts", got, want)
	}
}

func TestCredentialFailureReturnsToSleeping(t *testing.T) {
	h := newHarness(t, nil)
	h.orch.probe = func(ctx context.Context, apiKey string) error {
		return errors.New("credentials rejected: 401 Unauthorized")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.orch.Run(ctx) }()

	h.awaitPhase(t, state.Sleeping, time.Second)
	h.detector.Trigger()
	h.awaitPhase(t, state.Waking, 2*time.Second)
	events := h.awaitPhase(t, state.Sleeping, 2*time.Second)

	if len(events) == 0 || events[len(events)-1] != state.Error {
		t.Errorf("events = %v, want error event returning to sleeping", events)
	}
}

func TestExhaustedBudgetBlocksSession(t *testing.T) {
	h := newHarness(t, nil)
	h.orch.tracker = overBudgetTracker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.orch.Run(ctx) }()

	h.awaitPhase(t, state.Sleeping, time.Second)
	h.detector.Trigger()
	h.awaitPhase(t, state.Waking, 2*time.Second)
	h.awaitPhase(t, state.Sleeping, 2*time.Second)

	if h.orch.Machine().Phase() == state.Active {
		t.Error("session must not start with the budget exhausted")
	}
}

// overBudgetTracker builds a tracker whose store already carries more
// spend than the budget allows.
func overBudgetTracker(t *testing.T) *cost.Tracker {
	t.Helper()
	store, err := cost.OpenStore(t.TempDir() + "/cost.db")
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	id, _, err := store.StartSession()
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := store.EndSession(id, time.Minute, 0.10); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	return cost.NewTracker(store, cost.DefaultPricing(), 0.05)
}

func TestSessionConstructionFailureGoesToCooldown(t *testing.T) {
	h := newHarness(t, nil)
	h.orch.newSession = func(live.Config) (conversation, error) {
		return nil, errors.New("dial failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.orch.Run(ctx) }()

	h.awaitPhase(t, state.Sleeping, time.Second)
	h.detector.Trigger()
	h.awaitPhase(t, state.Active, 2*time.Second)
	h.awaitPhase(t, state.Cooldown, 2*time.Second)
	h.awaitPhase(t, state.Sleeping, 2*time.Second)
}

func TestSessionRunErrorStillCyclesToCooldown(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Session.SilenceTimeoutSec = 60
	})
	h.conv.runErr = errors.New("network reset by peer")
	close(h.conv.finish) // Run returns immediately

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.orch.Run(ctx) }()

	h.awaitPhase(t, state.Sleeping, time.Second)
	h.detector.Trigger()
	h.awaitPhase(t, state.Cooldown, 3*time.Second)
	h.awaitPhase(t, state.Sleeping, 2*time.Second)
}
