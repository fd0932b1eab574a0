package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"candycheck/internal/checker"
	"candycheck/internal/diagnostic"
	"candycheck/internal/logging"
	"candycheck/internal/reward"
	"candycheck/internal/session"
	"candycheck/internal/store"
)

// SuggestRequest asks for fix hints for one error message.
type SuggestRequest struct {
	SessionID    string `json:"session_id,omitempty"`
	ErrorMessage string `json:"error_message"`
}

// SuggestResponse carries ordered fix suggestions and the category the
// message classified into.
type SuggestResponse struct {
	SessionID   string              `json:"session_id"`
	Suggestions []string            `json:"suggestions"`
	Category    diagnostic.Category `json:"category"`
}

// SuggestFix maps an error message to concrete next steps, cross-
// referencing the session's tracked identifiers for near-miss names.
func (e *Engine) SuggestFix(req SuggestRequest) (*SuggestResponse, error) {
	sess := e.sessions.GetOrCreate(req.SessionID)

	resp := &SuggestResponse{SessionID: sess.Key}
	err := sess.Update(func(st *session.State) error {
		resp.Suggestions, resp.Category = diagnostic.SuggestFixes(req.ErrorMessage, st.Registry.SimilarKnown)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// SubmitRequest claims credit for fixed errors. FixedCode is
// re-checked before anything unlocks.
type SubmitRequest struct {
	SessionID    string   `json:"session_id,omitempty"`
	OriginalCode string   `json:"original_code,omitempty"`
	FixedCode    string   `json:"fixed_code"`
	ErrorsFixed  []string `json:"errors_fixed"`
}

// SubmitResponse reports the unlock arithmetic for a verified fix, or
// the surviving diagnostics when verification failed. A failed
// verification costs the streak and nothing else.
type SubmitResponse struct {
	SessionID         string                  `json:"session_id"`
	Success           bool                    `json:"success"`
	Unlocked          int                     `json:"unlocked"`
	Bonus             int                     `json:"bonus"`
	Multiplier        int                     `json:"multiplier,omitempty"`
	TotalReward       int                     `json:"total_reward"`
	TotalUnlocked     int                     `json:"total_unlocked"`
	Streak            int                     `json:"streak"`
	LockedRemaining   int                     `json:"locked_remaining"`
	MilestonesReached []int                   `json:"milestones_reached,omitempty"`
	Achievements      []string                `json:"achievements,omitempty"`
	ShadowScore       int                     `json:"shadow_score"`
	Efficiency        float64                 `json:"efficiency"`
	RemainingErrors   []diagnostic.Diagnostic `json:"remaining_errors,omitempty"`
	Leaderboard       reward.Board            `json:"leaderboard"`
}

// SubmitFixedCode verifies the fixed source through the checker and
// credits the session when it comes back clean. Without a configured
// checker the submission is taken at its word.
func (e *Engine) SubmitFixedCode(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if strings.TrimSpace(req.FixedCode) == "" {
		return nil, errors.New("fixed_code must not be empty")
	}

	var remaining []diagnostic.Diagnostic
	if e.checker != nil {
		res, err := e.checker.CheckSource(ctx, req.FixedCode, "", nil)
		if err != nil {
			return nil, fmt.Errorf("verifying fix: %w", err)
		}
		report := e.parser.Parse(res.Stdout, res.Stderr, checker.DefaultMainFile)
		for _, d := range report.Diagnostics {
			if d.Severity == diagnostic.SeverityError {
				remaining = append(remaining, d)
			}
		}
	}

	sess := e.sessions.GetOrCreate(req.SessionID)
	resp := &SubmitResponse{SessionID: sess.Key}
	err := sess.Update(func(st *session.State) error {
		if len(remaining) > 0 {
			st.Ledger.OnFixReject()
			snap := st.Ledger.Snapshot()
			resp.RemainingErrors = remaining
			resp.TotalUnlocked = snap.Unlocked
			resp.LockedRemaining = snap.Locked
			resp.ShadowScore = snap.ShadowScore
			resp.Efficiency = snap.Efficiency
		} else {
			out, err := st.Ledger.OnFixSubmit(len(req.ErrorsFixed))
			if err != nil {
				return err
			}
			e.selector.RecordFixes(sess.Persona, 1)
			resp.Success = true
			resp.Unlocked = out.BaseUnlocked
			resp.Bonus = out.Bonus
			resp.Multiplier = out.Multiplier
			resp.TotalReward = out.TotalReward
			resp.TotalUnlocked = out.Unlocked
			resp.Streak = out.Streak
			resp.LockedRemaining = out.LockedRemaining
			resp.MilestonesReached = out.NewMilestones
			resp.Achievements = out.Achievements
			resp.ShadowScore = out.ShadowScore
			resp.Efficiency = out.Efficiency
		}

		st.QueryCount++
		resp.Leaderboard = e.board.Standings(sess.Key, st.QueryCount, resp.TotalUnlocked)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resp.Success {
		e.record(store.OutcomeEvent{
			SessionKey:    sess.Key,
			Persona:       sess.Persona,
			Kind:          store.EventFix,
			ErrorCount:    len(req.ErrorsFixed),
			UnlockedDelta: resp.TotalReward,
		})
		logging.Server("submit: session=%s unlocked+=%d streak=%d", sess.Key, resp.TotalReward, resp.Streak)
	} else {
		e.record(store.OutcomeEvent{
			SessionKey: sess.Key,
			Persona:    sess.Persona,
			Kind:       store.EventFixRejected,
			ErrorCount: len(remaining),
		})
		logging.Server("submit rejected: session=%s remaining=%d", sess.Key, len(remaining))
	}
	return resp, nil
}
