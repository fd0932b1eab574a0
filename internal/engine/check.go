package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"candycheck/internal/checker"
	"candycheck/internal/diagnostic"
	"candycheck/internal/identifier"
	"candycheck/internal/logging"
	"candycheck/internal/session"
	"candycheck/internal/store"
)

// CheckRequest asks for one validation pass over a piece of source.
// RawStdout/RawStderr carry pre-supplied checker output for callers
// that ran the checker themselves; CheckCode fills them from the
// configured checker.
type CheckRequest struct {
	SessionID        string            `json:"session_id,omitempty"`
	Code             string            `json:"code"`
	Filename         string            `json:"filename,omitempty"`
	ContextFiles     map[string]string `json:"context_files,omitempty"`
	TrackIdentifiers *bool             `json:"track_identifiers,omitempty"`

	RawStdout string `json:"-"`
	RawStderr string `json:"-"`
}

// CheckResponse reports one validation pass. Success means zero
// error-severity diagnostics; warnings alone do not fail a check.
type CheckResponse struct {
	SessionID         string                  `json:"session_id"`
	Persona           string                  `json:"persona"`
	Success           bool                    `json:"success"`
	ErrorCount        int                     `json:"error_count"`
	WarningCount      int                     `json:"warning_count"`
	Diagnostics       []diagnostic.Diagnostic `json:"diagnostics"`
	ConsistencyIssues []identifier.Result     `json:"consistency_issues,omitempty"`
	LockedDelta       int                     `json:"locked_delta"`
	TotalLocked       int                     `json:"total_locked"`
	FullyParsed       bool                    `json:"fully_parsed"`
	PressureLevel     int                     `json:"pressure_level"`
	ShadowScore       int                     `json:"shadow_score"`
	Efficiency        float64                 `json:"efficiency"`
}

// CheckCode runs the configured checker over req.Code and feeds the
// raw output through Check.
func (e *Engine) CheckCode(ctx context.Context, req CheckRequest) (*CheckResponse, error) {
	if e.checker == nil {
		return nil, errors.New("no checker configured")
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, errors.New("code must not be empty")
	}
	res, err := e.checker.CheckSource(ctx, req.Code, req.Filename, req.ContextFiles)
	if err != nil {
		return nil, fmt.Errorf("checker: %w", err)
	}
	req.RawStdout, req.RawStderr = res.Stdout, res.Stderr
	return e.Check(req)
}

// Check parses pre-supplied checker output, auto-tracks declared
// identifiers, consistency-checks them, locks reward units for the
// problems found and records persona exposure. The whole sequence is
// atomic on the session.
func (e *Engine) Check(req CheckRequest) (*CheckResponse, error) {
	sess := e.sessions.GetOrCreate(req.SessionID)

	filename := req.Filename
	if filename == "" {
		filename = checker.DefaultMainFile
	}

	resp := &CheckResponse{SessionID: sess.Key, Persona: sess.Persona}
	err := sess.Update(func(st *session.State) error {
		report := e.parser.Parse(req.RawStdout, req.RawStderr, filename)

		if e.extractor != nil && (req.TrackIdentifiers == nil || *req.TrackIdentifiers) {
			resp.ConsistencyIssues = e.trackDeclared(st, req.Code, filename)
		}

		errCount := report.ErrorCount()
		warnCount := report.WarningCount()
		outcome, err := st.Ledger.OnCheck(errCount, warnCount, report.ImportTaggedCount())
		if err != nil {
			return err
		}

		if errCount+warnCount > 0 {
			e.selector.RecordShown(sess.Persona, 1)
		}

		resp.Success = errCount == 0
		resp.ErrorCount = errCount
		resp.WarningCount = warnCount
		resp.Diagnostics = report.Diagnostics
		resp.LockedDelta = outcome.LockedDelta
		resp.TotalLocked = outcome.TotalLocked
		resp.FullyParsed = report.FullyParsed
		resp.PressureLevel = outcome.PressureLevel
		resp.ShadowScore = outcome.ShadowScore
		resp.Efficiency = outcome.Efficiency
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.record(store.OutcomeEvent{
		SessionKey: sess.Key,
		Persona:    sess.Persona,
		Kind:       store.EventCheck,
		ErrorCount: resp.ErrorCount,
	})
	logging.Server("check: session=%s errors=%d warnings=%d locked+=%d",
		sess.Key, resp.ErrorCount, resp.WarningCount, resp.LockedDelta)
	return resp, nil
}

// trackDeclared feeds extracted declarations into the session registry
// and collects the naming issues worth surfacing. Extraction problems
// degrade to no auto-tracking.
func (e *Engine) trackDeclared(st *session.State, code, filename string) []identifier.Result {
	decls := e.extractor.Extract([]byte(code))
	if len(decls) == 0 {
		return nil
	}

	var issues []identifier.Result
	seen := make(map[string]bool, len(decls))
	for _, d := range decls {
		loc := fmt.Sprintf("%s:%d", filename, d.Line)
		if _, err := st.Registry.Track(d.Name, identifier.KindFromString(d.Kind), loc); err != nil {
			logging.IdentifierDebug("auto-track skipped %q: %v", d.Name, err)
			continue
		}
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true

		res, err := st.Registry.CheckConsistency(d.Name)
		if err != nil {
			continue
		}
		if !res.Consistent || len(res.RelatedForms) > 0 {
			issues = append(issues, res)
		}
	}
	return issues
}
