package cost

import (
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/reachy-companion/internal/log"
)

// audioTokensPerSec approximates Gemini's audio tokenization rate.
const audioTokensPerSec = 32

// Pricing holds per-million-token prices in USD.
type Pricing struct {
	InputAudioPerMillion  float64 `yaml:"input_audio_per_million"`
	OutputAudioPerMillion float64 `yaml:"output_audio_per_million"`
	InputTextPerMillion   float64 `yaml:"input_text_per_million"`
	OutputTextPerMillion  float64 `yaml:"output_text_per_million"`
}

// DefaultPricing is the native-audio Live API price list as of late 2025.
func DefaultPricing() Pricing {
	return Pricing{
		InputAudioPerMillion:  0.70,
		OutputAudioPerMillion: 7.00,
		InputTextPerMillion:   0.15,
		OutputTextPerMillion:  0.60,
	}
}

// Tracker accumulates audio seconds for the active session, estimates
// its cost and enforces the daily budget. Safe for concurrent use: the
// capture and playback paths both feed it.
type Tracker struct {
	store       *Store
	pricing     Pricing
	dailyBudget float64

	mu             sync.Mutex
	sessionID      int64
	sessionUUID    string
	sessionStart   time.Time
	inputAudioSec  float64
	outputAudioSec float64
	promptTokens   int
	responseTokens int
	active         bool
}

// NewTracker creates a tracker backed by store. A nil store disables
// persistence and the budget check always passes.
func NewTracker(store *Store, pricing Pricing, dailyBudgetUSD float64) *Tracker {
	return &Tracker{
		store:       store,
		pricing:     pricing,
		dailyBudget: dailyBudgetUSD,
	}
}

// StartSession begins cost accounting for a new session and returns its
// UUID for log correlation.
func (t *Tracker) StartSession() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sessionStart = time.Now()
	t.inputAudioSec = 0
	t.outputAudioSec = 0
	t.promptTokens = 0
	t.responseTokens = 0
	t.active = true

	if t.store == nil {
		t.sessionUUID = "untracked"
		return t.sessionUUID, nil
	}

	id, sessionUUID, err := t.store.StartSession()
	if err != nil {
		return "", fmt.Errorf("failed to start session tracking: %w", err)
	}
	t.sessionID = id
	t.sessionUUID = sessionUUID
	return sessionUUID, nil
}

// EndSession closes the active session, persists duration, usage and
// estimated cost, and returns the estimate.
func (t *Tracker) EndSession() (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return 0, nil
	}
	t.active = false

	duration := time.Since(t.sessionStart)
	estimate := t.estimateLocked()

	log.Info("session ended",
		"session", t.sessionUUID,
		"duration_sec", fmt.Sprintf("%.1f", duration.Seconds()),
		"cost_usd", fmt.Sprintf("%.4f", estimate))

	if t.store == nil {
		return estimate, nil
	}

	if err := t.store.EndSession(t.sessionID, duration, estimate); err != nil {
		return estimate, err
	}
	inputTokens, outputTokens := t.tokensLocked()
	err := t.store.LogUsage(t.sessionID, Usage{
		InputAudioTokens:  inputTokens,
		OutputAudioTokens: outputTokens,
		EstimatedCostUSD:  estimate,
	})
	return estimate, err
}

// AddInputAudio records captured microphone audio duration.
func (t *Tracker) AddInputAudio(seconds float64) {
	t.mu.Lock()
	t.inputAudioSec += seconds
	t.mu.Unlock()
}

// AddOutputAudio records model audio playback duration.
func (t *Tracker) AddOutputAudio(seconds float64) {
	t.mu.Lock()
	t.outputAudioSec += seconds
	t.mu.Unlock()
}

// RecordUsage stores token counters reported by the server. The Live API
// reports cumulative counts for the session, so each report replaces the
// previous one. Once reported, these counts supersede the audio-second
// estimate for billing.
func (t *Tracker) RecordUsage(promptTokens, responseTokens int) {
	t.mu.Lock()
	t.promptTokens = promptTokens
	t.responseTokens = responseTokens
	t.mu.Unlock()
}

// Estimate returns the estimated cost of the current session so far.
func (t *Tracker) Estimate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.estimateLocked()
}

func (t *Tracker) estimateLocked() float64 {
	inputTokens, outputTokens := t.tokensLocked()
	return float64(inputTokens)/1e6*t.pricing.InputAudioPerMillion +
		float64(outputTokens)/1e6*t.pricing.OutputAudioPerMillion
}

// tokensLocked returns the token counts to bill for the session.
// Server-reported counters win; the audio-second estimate covers sessions
// where the server never sent usage metadata.
func (t *Tracker) tokensLocked() (inputTokens, outputTokens int) {
	if t.promptTokens > 0 || t.responseTokens > 0 {
		return t.promptTokens, t.responseTokens
	}
	return int(t.inputAudioSec * audioTokensPerSec),
		int(t.outputAudioSec * audioTokensPerSec)
}

// CheckBudget reports whether today's spend leaves room for another
// session.
func (t *Tracker) CheckBudget() (bool, error) {
	if t.store == nil {
		return true, nil
	}

	total, err := t.store.DailyTotal("")
	if err != nil {
		return false, err
	}
	remaining := t.dailyBudget - total
	if remaining <= 0 {
		log.Warn("daily budget exceeded",
			"spent_usd", fmt.Sprintf("%.4f", total),
			"budget_usd", fmt.Sprintf("%.2f", t.dailyBudget))
		return false, nil
	}
	log.Info("budget remaining", "usd", fmt.Sprintf("%.4f", remaining))
	return true, nil
}
