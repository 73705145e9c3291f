/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import "sync"

// Store is the session registry. Implementations must be safe for
// concurrent use; state inside a session is guarded by the session
// itself, so the store only coordinates the id → session mapping.
type Store interface {
	Get(id string) (*Session, bool)
	Put(s *Session)
	Delete(id string)

	// ForEach visits every stored session until fn returns false.
	ForEach(fn func(s *Session) bool)

	Len() int
}

// MemoryStore keeps sessions in a mutex-guarded map. State is lost when
// the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

func (m *MemoryStore) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]

	return s, ok
}

func (m *MemoryStore) Put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.id] = s
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
}

// ForEach iterates over a copy of the current session set, so fn is free
// to lock sessions or delete entries while it runs.
func (m *MemoryStore) ForEach(fn func(s *Session) bool) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		if !fn(s) {
			return
		}
	}
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}
