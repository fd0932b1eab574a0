// Package persona assigns each session a fixed message-variant persona
// and aggregates process-wide outcome counters per persona, so variant
// effectiveness can be compared across sessions.
package persona

import (
	"hash/fnv"
	"sync"

	"candycheck/internal/logging"
)

// DefaultSet is the stock persona rotation.
func DefaultSet() []string {
	return []string{
		"desperate_craver",
		"lollipop_addict",
		"dopamine_seeker",
		"sugar_rusher",
		"candy_collector",
	}
}

// Stats are one persona's aggregates. FixRate is fixes over shown,
// zero when nothing has been shown.
type Stats struct {
	Persona          string  `json:"persona"`
	DiagnosticsShown int     `json:"diagnostics_shown"`
	FixesSubmitted   int     `json:"fixes_submitted"`
	FixRate          float64 `json:"fix_rate"`
}

// Selector owns persona assignment and the cross-session counters.
// Counter updates take the selector's own lock, independent of session
// locks, so sessions never contend with each other here beyond the
// increment itself.
type Selector struct {
	mu       sync.RWMutex
	personas []string
	shown    map[string]int
	fixes    map[string]int
}

// NewSelector builds a selector over the configured persona set,
// falling back to the default rotation when the set is empty.
func NewSelector(personas []string) *Selector {
	if len(personas) == 0 {
		personas = DefaultSet()
	}
	return &Selector{
		personas: append([]string(nil), personas...),
		shown:    make(map[string]int),
		fixes:    make(map[string]int),
	}
}

// Assign maps a session key onto a persona. The mapping is a pure
// function of the key, so re-querying never reassigns.
func (s *Selector) Assign(sessionKey string) string {
	h := fnv.New64a()
	h.Write([]byte(sessionKey))

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.personas[h.Sum64()%uint64(len(s.personas))]
}

// RecordShown adds n shown diagnostics to a persona's aggregate.
func (s *Selector) RecordShown(persona string, n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.shown[persona] += n
	s.mu.Unlock()
	logging.PersonaDebug("persona %s shown +%d diagnostics", persona, n)
}

// RecordFixes adds n submitted fixes to a persona's aggregate.
func (s *Selector) RecordFixes(persona string, n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.fixes[persona] += n
	s.mu.Unlock()
	logging.PersonaDebug("persona %s fixes +%d", persona, n)
}

// Report returns per-persona effectiveness in configured order. Every
// configured persona appears, including ones never shown. The result
// is a deep copy; mutating it cannot touch the aggregates.
func (s *Selector) Report() []Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Stats, 0, len(s.personas))
	for _, p := range s.personas {
		st := Stats{
			Persona:          p,
			DiagnosticsShown: s.shown[p],
			FixesSubmitted:   s.fixes[p],
		}
		if st.DiagnosticsShown > 0 {
			st.FixRate = float64(st.FixesSubmitted) / float64(st.DiagnosticsShown)
		}
		out = append(out, st)
	}
	return out
}
