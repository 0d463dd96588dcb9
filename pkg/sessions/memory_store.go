package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Expired entries are dropped
// when they are next read.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, token)
		return nil, ErrSessionNotFound
	}
	return copySession(s), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = *copySession(*s)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, token string, fn func(*Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[token]
	if !ok || !m.now().Before(stored.ExpiresAt) {
		return ErrSessionNotFound
	}
	s := copySession(stored)
	if err := fn(s); err != nil {
		return err
	}
	s.Token = token
	m.sessions[token] = *copySession(*s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// Len returns the number of stored sessions, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// copySession detaches the pointer fields so callers cannot mutate stored state
func copySession(s Session) *Session {
	if s.Pending != nil {
		p := *s.Pending
		s.Pending = &p
	}
	if s.Principal != nil {
		p := *s.Principal
		s.Principal = &p
	}
	return &s
}
