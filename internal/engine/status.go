package engine

import (
	"candycheck/internal/logging"
	"candycheck/internal/persona"
	"candycheck/internal/reward"
	"candycheck/internal/session"
)

// StatusRequest asks for a session's current standing.
type StatusRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// StatusResponse is the ledger snapshot plus the simulated standings.
// Reading status accrues pending idle debt but never moves balances.
type StatusResponse struct {
	SessionID string `json:"session_id"`
	Persona   string `json:"persona"`
	reward.Snapshot
	Leaderboard reward.Board `json:"leaderboard"`
}

// Status reports the session's balances, streak, milestone progress
// and leaderboard position.
func (e *Engine) Status(req StatusRequest) (*StatusResponse, error) {
	sess := e.sessions.GetOrCreate(req.SessionID)

	resp := &StatusResponse{SessionID: sess.Key, Persona: sess.Persona}
	err := sess.Update(func(st *session.State) error {
		resp.Snapshot = st.Ledger.Snapshot()
		st.QueryCount++
		resp.Leaderboard = e.board.Standings(sess.Key, st.QueryCount, resp.Snapshot.Unlocked)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// PersonaReport is the process-wide A/B aggregate across sessions.
type PersonaReport struct {
	Personas []persona.Stats `json:"personas"`
}

// PersonaEffectiveness reports per-persona exposure and fix rates.
func (e *Engine) PersonaEffectiveness() (*PersonaReport, error) {
	return &PersonaReport{Personas: e.selector.Report()}, nil
}

// ClearRequest drops one session.
type ClearRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// ClearResponse reports whether a live session was dropped. Clearing
// an unknown or empty key succeeds with Cleared false.
type ClearResponse struct {
	SessionID string `json:"session_id"`
	Cleared   bool   `json:"cleared"`
}

// ClearSession destroys the session and everything it owns. The next
// operation on the same key starts from zero with the same persona.
func (e *Engine) ClearSession(req ClearRequest) (*ClearResponse, error) {
	cleared := false
	if req.SessionID != "" {
		cleared = e.sessions.Clear(req.SessionID)
	}
	logging.Server("clear: session=%s cleared=%t", req.SessionID, cleared)
	return &ClearResponse{SessionID: req.SessionID, Cleared: cleared}, nil
}
