// Package web serves a small status dashboard over HTTP.
package web

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/teslashibe/reachy-companion/internal/log"
	"github.com/teslashibe/reachy-companion/pkg/cost"
	"github.com/teslashibe/reachy-companion/pkg/state"
)

// Status is the /api/status payload.
type Status struct {
	Phase              string  `json:"phase"`
	PhaseSinceSec      float64 `json:"phase_since_sec"`
	Sessions           int     `json:"sessions"`
	ToolCalls          int     `json:"tool_calls"`
	LastUserText       string  `json:"last_user_text"`
	LastAssistantText  string  `json:"last_assistant_text"`
	SessionCostUSD     float64 `json:"session_cost_usd"`
	LastTransitionTime string  `json:"last_transition_time,omitempty"`
}

// Server exposes companion status and cost summaries. It observes the
// state machine and collects transcripts as they stream in.
type Server struct {
	app     *fiber.App
	machine *state.Machine
	tracker *cost.Tracker
	store   *cost.Store
	addr    string

	mu             sync.RWMutex
	sessions       int
	toolCalls      int
	lastUser       string
	lastAssistant  string
	lastTransition time.Time
}

// NewServer builds the dashboard server. store may be nil when cost
// persistence is disabled.
func NewServer(host string, port int, machine *state.Machine, tracker *cost.Tracker, store *cost.Store) *Server {
	s := &Server{
		machine: machine,
		tracker: tracker,
		store:   store,
		addr:    fmt.Sprintf("%s:%d", host, port),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Reachy Companion",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/cost/daily", s.handleDailyCost)

	s.app = app

	machine.Subscribe(func(from state.Phase, event state.Event, to state.Phase) {
		s.mu.Lock()
		s.lastTransition = time.Now()
		if to == state.Active {
			s.sessions++
		}
		s.mu.Unlock()
	})

	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	log.Info("dashboard listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// RecordToolCall bumps the tool-call counter.
func (s *Server) RecordToolCall() {
	s.mu.Lock()
	s.toolCalls++
	s.mu.Unlock()
}

// RecordTranscript stores the latest transcript per role.
func (s *Server) RecordTranscript(role, text string) {
	s.mu.Lock()
	switch role {
	case "user":
		s.lastUser = text
	default:
		s.lastAssistant = text
	}
	s.mu.Unlock()
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	st := Status{
		Sessions:          s.sessions,
		ToolCalls:         s.toolCalls,
		LastUserText:      s.lastUser,
		LastAssistantText: s.lastAssistant,
	}
	if !s.lastTransition.IsZero() {
		st.LastTransitionTime = s.lastTransition.UTC().Format(time.RFC3339)
	}
	s.mu.RUnlock()

	st.Phase = s.machine.Phase().String()
	st.PhaseSinceSec = s.machine.TimeInPhase().Seconds()
	if s.tracker != nil {
		st.SessionCostUSD = s.tracker.Estimate()
	}

	return c.JSON(st)
}

func (s *Server) handleDailyCost(c *fiber.Ctx) error {
	if s.store == nil {
		return c.JSON([]cost.DaySummary{})
	}
	summaries, err := s.store.RecentSummaries(7)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if summaries == nil {
		summaries = []cost.DaySummary{}
	}
	return c.JSON(summaries)
}
