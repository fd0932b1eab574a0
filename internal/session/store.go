package session

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"candycheck/internal/logging"
)

// Store owns every live session, addressed by key. Sessions are
// created on first use and hold their sub-objects for their whole
// lifetime; clearing a key drops the session and everything it owns.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	// create builds a fully wired session for a key (persona assigned,
	// ledger and registry constructed). Injected so the store stays
	// free of reward and persona concerns.
	create func(key string) *Session
}

// NewStore builds an empty store. create is called under the store
// lock exactly once per new key.
func NewStore(create func(key string) *Session) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		create:   create,
	}
}

// GetOrCreate returns the session for key, creating it if absent. An
// empty key means "give me a fresh session" and gets a generated UUID
// key. Unknown keys are never an error.
func (s *Store) GetOrCreate(key string) *Session {
	if key == "" {
		key = uuid.NewString()
	} else {
		s.mu.RLock()
		sess, ok := s.sessions[key]
		s.mu.RUnlock()
		if ok {
			return sess
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		return sess
	}
	sess := s.create(key)
	s.sessions[key] = sess
	logging.Store("session created: key=%s persona=%s total=%d", key, sess.Persona, len(s.sessions))
	return sess
}

// Get returns the session for key without creating one.
func (s *Store) Get(key string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key]
	return sess, ok
}

// Clear removes the session for key and reports whether one existed.
// Clearing an unknown key is a successful no-op.
func (s *Store) Clear(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[key]; !ok {
		return false
	}
	delete(s.sessions, key)
	logging.Store("session cleared: key=%s remaining=%d", key, len(s.sessions))
	return true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Keys returns the live session keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.sessions))
	for k := range s.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
