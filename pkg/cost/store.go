// Package cost tracks per-session spend against a daily budget.
//
// Sessions and token usage are persisted to SQLite so the budget
// survives restarts. Costs are estimates derived from audio duration;
// exact figures come from the provider's billing console.
package cost

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Store persists sessions and token usage in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid TEXT NOT NULL UNIQUE,
	started_at TEXT NOT NULL,
	ended_at TEXT,
	duration_sec REAL,
	total_cost_usd REAL DEFAULT 0.0
);

CREATE TABLE IF NOT EXISTS token_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL,
	timestamp TEXT NOT NULL,
	input_audio_tokens INTEGER DEFAULT 0,
	output_audio_tokens INTEGER DEFAULT 0,
	input_text_tokens INTEGER DEFAULT 0,
	output_text_tokens INTEGER DEFAULT 0,
	estimated_cost_usd REAL DEFAULT 0.0,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE VIEW IF NOT EXISTS daily_summary AS
SELECT
	date(started_at) AS day,
	COUNT(*) AS session_count,
	ROUND(SUM(duration_sec), 1) AS total_duration_sec,
	ROUND(SUM(total_cost_usd), 4) AS total_cost_usd
FROM sessions
WHERE ended_at IS NOT NULL
GROUP BY date(started_at);
`

// OpenStore opens (creating if needed) the cost database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cost database: %w", err)
	}
	// modernc sqlite connections are not safe for fully parallel writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply cost schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// StartSession inserts a new session row and returns its ID and UUID.
func (s *Store) StartSession() (int64, string, error) {
	sessionUUID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := s.db.Exec(
		"INSERT INTO sessions (uuid, started_at) VALUES (?, ?)",
		sessionUUID, now,
	)
	if err != nil {
		return 0, "", fmt.Errorf("failed to insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", fmt.Errorf("failed to read session id: %w", err)
	}
	return id, sessionUUID, nil
}

// EndSession records a session's end time, duration and total cost.
func (s *Store) EndSession(sessionID int64, duration time.Duration, totalCostUSD float64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		"UPDATE sessions SET ended_at = ?, duration_sec = ?, total_cost_usd = ? WHERE id = ?",
		now, duration.Seconds(), totalCostUSD, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// Usage is a single token-usage record for a session.
type Usage struct {
	InputAudioTokens  int
	OutputAudioTokens int
	InputTextTokens   int
	OutputTextTokens  int
	EstimatedCostUSD  float64
}

// LogUsage appends a token-usage row for a session.
func (s *Store) LogUsage(sessionID int64, u Usage) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO token_usage
		 (session_id, timestamp, input_audio_tokens, output_audio_tokens,
		  input_text_tokens, output_text_tokens, estimated_cost_usd)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, now, u.InputAudioTokens, u.OutputAudioTokens,
		u.InputTextTokens, u.OutputTextTokens, u.EstimatedCostUSD,
	)
	if err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}
	return nil
}

// DailyTotal returns the total cost of completed sessions on the given
// day (YYYY-MM-DD). An empty day means today, UTC.
func (s *Store) DailyTotal(day string) (float64, error) {
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	}

	var total float64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(total_cost_usd), 0)
		 FROM sessions
		 WHERE date(started_at) = ? AND ended_at IS NOT NULL`,
		day,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to query daily total: %w", err)
	}
	return total, nil
}

// DaySummary is one row of the daily_summary view.
type DaySummary struct {
	Day              string  `json:"day"`
	SessionCount     int     `json:"session_count"`
	TotalDurationSec float64 `json:"total_duration_sec"`
	TotalCostUSD     float64 `json:"total_cost_usd"`
}

// RecentSummaries returns daily summaries for the most recent days,
// newest first.
func (s *Store) RecentSummaries(limit int) ([]DaySummary, error) {
	rows, err := s.db.Query(
		"SELECT day, session_count, total_duration_sec, total_cost_usd FROM daily_summary ORDER BY day DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily summary: %w", err)
	}
	defer rows.Close()

	var out []DaySummary
	for rows.Next() {
		var d DaySummary
		if err := rows.Scan(&d.Day, &d.SessionCount, &d.TotalDurationSec, &d.TotalCostUSD); err != nil {
			return nil, fmt.Errorf("failed to scan daily summary: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
