package web

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/reachy-companion/pkg/cost"
	"github.com/teslashibe/reachy-companion/pkg/state"
)

func newTestServer(t *testing.T) (*Server, *state.Machine, *cost.Store) {
	t.Helper()
	store, err := cost.OpenStore(filepath.Join(t.TempDir(), "cost.db"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	machine := state.New()
	tracker := cost.NewTracker(store, cost.DefaultPricing(), 1.0)
	return NewServer("127.0.0.1", 0, machine, tracker, store), machine, store
}

func getJSON(t *testing.T, s *Server, path string, out any) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("%s status = %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

func TestStatusReflectsMachine(t *testing.T) {
	s, machine, _ := newTestServer(t)

	var st Status
	getJSON(t, s, "/api/status", &st)
	if st.Phase != "setup" {
		t.Errorf("phase = %q, want setup", st.Phase)
	}
	if st.Sessions != 0 {
		t.Errorf("sessions = %d, want 0", st.Sessions)
	}

	for _, ev := range []state.Event{state.SetupComplete, state.WakeWordDetected, state.SessionReady} {
		if _, err := machine.Apply(ev); err != nil {
			t.Fatalf("Apply(%v) failed: %v", ev, err)
		}
	}

	getJSON(t, s, "/api/status", &st)
	if st.Phase != "active" {
		t.Errorf("phase = %q, want active", st.Phase)
	}
	if st.Sessions != 1 {
		t.Errorf("sessions = %d, want 1", st.Sessions)
	}
	if st.LastTransitionTime == "" {
		t.Error("last transition time should be set after transitions")
	}
}

func TestStatusCountsAndTranscripts(t *testing.T) {
	s, _, _ := newTestServer(t)

	s.RecordToolCall()
	s.RecordToolCall()
	s.RecordTranscript("user", "hello robot")
	s.RecordTranscript("assistant", "hello there")

	var st Status
	getJSON(t, s, "/api/status", &st)
	if st.ToolCalls != 2 {
		t.Errorf("tool calls = %d, want 2", st.ToolCalls)
	}
	if st.LastUserText != "hello robot" || st.LastAssistantText != "hello there" {
		t.Errorf("transcripts = %q / %q", st.LastUserText, st.LastAssistantText)
	}
}

func TestDailyCostEndpoint(t *testing.T) {
	s, _, store := newTestServer(t)

	var summaries []cost.DaySummary
	getJSON(t, s, "/api/cost/daily", &summaries)
	if len(summaries) != 0 {
		t.Errorf("empty store should return no summaries, got %v", summaries)
	}

	id, _, err := store.StartSession()
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := store.EndSession(id, time.Minute, 0.02); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	getJSON(t, s, "/api/cost/daily", &summaries)
	if len(summaries) != 1 || summaries[0].SessionCount != 1 {
		t.Errorf("summaries = %v, want one row with one session", summaries)
	}
}
