// Package store persists reward outcome events to SQLite so persona
// effectiveness can be compared across runs. Session state itself is
// never persisted; the log is append-only and strictly optional.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"candycheck/internal/logging"
)

// Event kinds recorded in the outcome log.
const (
	EventCheck       = "check"
	EventFix         = "fix"
	EventFixRejected = "fix_rejected"
)

// OutcomeEvent is one appended row. Zero ID and CreatedAt are filled
// in by Append.
type OutcomeEvent struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	SessionKey    string    `json:"session_key"`
	Persona       string    `json:"persona"`
	Kind          string    `json:"kind"`
	ErrorCount    int       `json:"error_count"`
	UnlockedDelta int       `json:"unlocked_delta"`
}

// PersonaSummary aggregates one persona's exposure and outcomes.
type PersonaSummary struct {
	Persona string  `json:"persona"`
	Shown   int     `json:"diagnostics_shown"`
	Fixed   int     `json:"fixes_submitted"`
	FixRate float64 `json:"fix_rate"`
}

// OutcomeLog is an append-only SQLite log of reward events.
type OutcomeLog struct {
	mu sync.Mutex
	db *sql.DB
}

const outcomeSchema = `
CREATE TABLE IF NOT EXISTS outcome_events (
    id             TEXT PRIMARY KEY,
    created_at     DATETIME NOT NULL,
    session_key    TEXT NOT NULL,
    persona        TEXT NOT NULL,
    kind           TEXT NOT NULL,
    error_count    INTEGER NOT NULL DEFAULT 0,
    unlocked_delta INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_outcome_events_persona ON outcome_events(persona);
CREATE INDEX IF NOT EXISTS idx_outcome_events_session ON outcome_events(session_key);
`

// OpenOutcomeLog opens (or creates) the log at path.
func OpenOutcomeLog(path string) (*OutcomeLog, error) {
	timer := logging.StartTimer(logging.CategoryStore, "OpenOutcomeLog")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating outcome log dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening outcome log: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("busy_timeout pragma failed: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("journal_mode pragma failed: %v", err)
	}

	if _, err := db.Exec(outcomeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing outcome schema: %w", err)
	}

	logging.Store("outcome log open at %s", path)
	return &OutcomeLog{db: db}, nil
}

// Append writes one event. Missing ID and CreatedAt are generated.
func (l *OutcomeLog) Append(ev OutcomeEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.db.Exec(
		`INSERT INTO outcome_events
		   (id, created_at, session_key, persona, kind, error_count, unlocked_delta)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.CreatedAt, ev.SessionKey, ev.Persona, ev.Kind, ev.ErrorCount, ev.UnlockedDelta,
	)
	if err != nil {
		return fmt.Errorf("appending outcome event: %w", err)
	}
	logging.StoreDebug("outcome appended: kind=%s session=%s persona=%s", ev.Kind, ev.SessionKey, ev.Persona)
	return nil
}

// PersonaSummary aggregates shown/fixed counts per persona in SQL.
// Exposure counts checks that surfaced at least one problem, matching
// the in-memory aggregates.
func (l *OutcomeLog) PersonaSummary() ([]PersonaSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query(`
		SELECT persona,
		       SUM(CASE WHEN kind = ? AND error_count > 0 THEN 1 ELSE 0 END) AS shown,
		       SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END) AS fixed
		FROM outcome_events
		GROUP BY persona
		ORDER BY persona`,
		EventCheck, EventFix,
	)
	if err != nil {
		return nil, fmt.Errorf("summarizing outcomes: %w", err)
	}
	defer rows.Close()

	var out []PersonaSummary
	for rows.Next() {
		var s PersonaSummary
		if err := rows.Scan(&s.Persona, &s.Shown, &s.Fixed); err != nil {
			return nil, fmt.Errorf("scanning outcome summary: %w", err)
		}
		if s.Shown > 0 {
			s.FixRate = float64(s.Fixed) / float64(s.Shown)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Events returns the most recent events, newest first, up to limit.
func (l *OutcomeLog) Events(limit int) ([]OutcomeEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query(`
		SELECT id, created_at, session_key, persona, kind, error_count, unlocked_delta
		FROM outcome_events
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing outcome events: %w", err)
	}
	defer rows.Close()

	var out []OutcomeEvent
	for rows.Next() {
		var ev OutcomeEvent
		if err := rows.Scan(&ev.ID, &ev.CreatedAt, &ev.SessionKey, &ev.Persona, &ev.Kind, &ev.ErrorCount, &ev.UnlockedDelta); err != nil {
			return nil, fmt.Errorf("scanning outcome event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (l *OutcomeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}
