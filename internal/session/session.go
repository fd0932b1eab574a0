// Package session owns per-key session state and the store that
// addresses it. A session's mutable core is only reachable through
// Update, which serializes the whole parse→track→ledger sequence of an
// operation against concurrent calls on the same key. Different keys
// never contend.
package session

import (
	"sync"
	"time"

	"candycheck/internal/identifier"
	"candycheck/internal/logging"
	"candycheck/internal/reward"
)

// State is a session's mutable core. No field outlives its Session and
// nothing here points back at the store.
type State struct {
	Registry *identifier.Registry
	Ledger   *reward.Ledger
	// QueryCount numbers leaderboard queries for deterministic jitter.
	QueryCount uint64
	LastActive time.Time
}

// Session pairs an immutable identity with a lock-guarded State.
type Session struct {
	Key     string
	Persona string
	Created time.Time

	mu    sync.Mutex
	state State
}

// New builds a session. The persona is fixed for the session's
// lifetime.
func New(key, persona string, registry *identifier.Registry, ledger *reward.Ledger) *Session {
	now := time.Now()
	logging.Session("session %s created with persona %s", key, persona)
	return &Session{
		Key:     key,
		Persona: persona,
		Created: now,
		state: State{
			Registry:   registry,
			Ledger:     ledger,
			LastActive: now,
		},
	}
}

// Update runs fn with exclusive access to the session's state. Every
// engine operation, reads included, goes through here.
func (s *Session) Update(fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastActive = time.Now()
	return fn(&s.state)
}

// LastActive reports the time of the most recent operation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastActive
}
