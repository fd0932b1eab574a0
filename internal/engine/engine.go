// Package engine implements the tool operations: checking code,
// tracking identifier naming, crediting verified fixes and reporting
// reward status. Every operation that touches a session runs inside
// that session's lock, so a whole parse→track→ledger sequence is
// atomic per key. The engine itself does no I/O; the checker
// subprocess and the outcome log are injected and optional.
package engine

import (
	"context"
	"sync"
	"time"

	"candycheck/internal/checker"
	"candycheck/internal/diagnostic"
	"candycheck/internal/identifier"
	"candycheck/internal/logging"
	"candycheck/internal/persona"
	"candycheck/internal/reward"
	"candycheck/internal/session"
	"candycheck/internal/store"
)

// SourceChecker runs the external checker against staged source.
// *checker.Runner satisfies it; tests substitute fakes.
type SourceChecker interface {
	CheckSource(ctx context.Context, code, filename string, contextFiles map[string]string) (*checker.RunResult, error)
}

// OutcomeSink records reward events for later analysis. A nil sink
// disables recording; append failures are logged, never surfaced.
type OutcomeSink interface {
	Append(ev store.OutcomeEvent) error
}

// Options wires an Engine. Zero fields fall back to production
// defaults; Checker, Extractor and Outcomes may stay nil.
type Options struct {
	Params      reward.Params
	Personas    []string
	Competitors []string
	Checker     SourceChecker
	Extractor   checker.Extractor
	Outcomes    OutcomeSink
	Clock       func() time.Time
	Factory     reward.Factory
}

// Engine coordinates sessions, personas and rewards behind the tool
// surface.
type Engine struct {
	sessions  *session.Store
	selector  *persona.Selector
	parser    *diagnostic.Parser
	board     *reward.Leaderboard
	checker   SourceChecker
	extractor checker.Extractor
	outcomes  OutcomeSink
	clock     func() time.Time
	factory   reward.Factory

	paramsMu sync.RWMutex
	params   reward.Params
}

// New builds an engine from opts.
func New(opts Options) *Engine {
	if opts.Params.LockCapFactor == 0 {
		opts.Params = reward.DefaultParams()
	}
	if len(opts.Personas) == 0 {
		opts.Personas = persona.DefaultSet()
	}
	if len(opts.Competitors) == 0 {
		opts.Competitors = reward.DefaultCompetitors()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Factory == nil {
		opts.Factory = reward.MathRand
	}

	e := &Engine{
		selector:  persona.NewSelector(opts.Personas),
		parser:    diagnostic.NewParser(),
		board:     reward.NewLeaderboard(opts.Competitors, opts.Factory),
		params:    opts.Params,
		checker:   opts.Checker,
		extractor: opts.Extractor,
		outcomes:  opts.Outcomes,
		clock:     opts.Clock,
		factory:   opts.Factory,
	}
	e.sessions = session.NewStore(e.newSession)
	return e
}

// newSession assigns a persona and builds the owned sub-objects for a
// fresh key.
func (e *Engine) newSession(key string) *session.Session {
	assigned := e.selector.Assign(key)
	ledger := reward.NewLedger(key, e.Params(), e.clock, e.factory)
	return session.New(key, assigned, identifier.NewRegistry(), ledger)
}

// Sessions exposes the session store for lifecycle introspection.
func (e *Engine) Sessions() *session.Store { return e.sessions }

// Params returns the economy constants new sessions start with.
func (e *Engine) Params() reward.Params {
	e.paramsMu.RLock()
	defer e.paramsMu.RUnlock()
	return e.params
}

// SetParams swaps the economy constants for sessions created from now
// on. Existing sessions keep the parameters they started with.
func (e *Engine) SetParams(p reward.Params) {
	e.paramsMu.Lock()
	e.params = p
	e.paramsMu.Unlock()
	logging.Session("reward params updated for future sessions")
}

// record appends one outcome event, swallowing sink errors so a slow
// or broken log never fails a tool call.
func (e *Engine) record(ev store.OutcomeEvent) {
	if e.outcomes == nil {
		return
	}
	if err := e.outcomes.Append(ev); err != nil {
		logging.StoreWarn("outcome append failed: %v", err)
	}
}
