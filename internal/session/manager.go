package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxSessions limits concurrent sessions to bound memory and stored files.
const MaxSessions = 1000

// Options configures a Manager.
type Options struct {
	// DiscardStaleResponses enables the submit generation guard for every session.
	DiscardStaleResponses bool
	// OnExpire is called after a session is removed, outside the manager lock.
	OnExpire func(s *Session)
	Logger   zerolog.Logger
}

// Manager maps browser session ids to their state.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	opts     Options
}

// NewManager creates a new session manager.
func NewManager(opts Options) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// Create starts a new empty session with a fresh id.
func (m *Manager) Create() *Session {
	return m.GetOrCreate(uuid.New().String())
}

// GetOrCreate returns the session for id, creating an empty one if needed.
// Ids that are not valid UUIDs are replaced with a fresh one.
func (m *Manager) GetOrCreate(id string) *Session {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		s.Touch()
		return s
	}

	evicted := m.evictIfFullLocked()
	s := newSession(id, m.opts.DiscardStaleResponses)
	m.sessions[id] = s
	m.mu.Unlock()

	m.expire(evicted)
	return s
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete removes a session immediately.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.expire([]*Session{s})
	}
	return ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupOldSessions removes sessions not accessed within maxAge and returns
// how many were removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.LastAccessed().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	m.expire(expired)
	return len(expired)
}

// Run expires idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, maxAge time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("session cleanup interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.CleanupOldSessions(maxAge); n > 0 {
				m.opts.Logger.Info().Int("expired", n).Int("remaining", m.Count()).Msg("expired idle sessions")
			}
		}
	}
}

// evictIfFullLocked removes the least recently used sessions until there is
// room for one more. Caller holds m.mu.
func (m *Manager) evictIfFullLocked() []*Session {
	if len(m.sessions) < MaxSessions {
		return nil
	}

	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].LastAccessed().Before(all[j].LastAccessed())
	})

	toFree := len(m.sessions) - MaxSessions + 1
	evicted := all[:toFree]
	for _, s := range evicted {
		delete(m.sessions, s.ID)
		m.opts.Logger.Debug().Str("session", s.ID).Msg("evicted least recently used session")
	}
	return evicted
}

func (m *Manager) expire(sessions []*Session) {
	for _, s := range sessions {
		s.close()
		if m.opts.OnExpire != nil {
			m.opts.OnExpire(s)
		}
	}
}
