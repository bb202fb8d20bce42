package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sage-x-project/mpenc/internal/logger"
)

// CleanupInterval is how often a Manager's background goroutine sweeps for
// expired sessions, mirroring the teacher's core/session.Manager.
const CleanupInterval = 30 * time.Second

// Manager owns a set of concurrent group Sessions, expiring them per their
// Config and running periodic cleanup the way the teacher's
// core/session.Manager does for point-to-point ones.
type Manager struct {
	mu            sync.RWMutex
	sessions      map[string]*Session
	defaultConfig Config

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

// NewManager creates a Manager using DefaultConfig and starts its
// background cleanup loop.
func NewManager() *Manager {
	return NewManagerWithConfig(DefaultConfig())
}

// NewManagerWithConfig creates a Manager that stores cfg as its default
// Config (see DefaultConfig) and starts its background cleanup loop.
func NewManagerWithConfig(cfg Config) *Manager {
	m := &Manager{
		sessions:      make(map[string]*Session),
		defaultConfig: cfg,
		cleanupTicker: time.NewTicker(CleanupInterval),
		stopCleanup:   make(chan struct{}),
	}
	go m.runCleanup()
	return m
}

// Add registers an already-constructed Session under id, replacing any
// current session under that id (the prior one is closed first).
func (m *Manager) Add(id string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, exists := m.sessions[id]; exists {
		old.Close()
	}
	m.sessions[id] = s
}

// AddNew registers s under a freshly generated random session id (a v4
// uuid, the same correlation-id convention the teacher's handshake
// messages use) and returns that id, for callers managing many sessions
// per participant that have no natural id of their own to key by. Add
// remains the entry point when the caller already has one (e.g. a
// member's own participant ID).
func (m *Manager) AddNew(s *Session) string {
	id := uuid.NewString()
	m.Add(id, s)
	return id
}

// Get retrieves a session by id. It reports false and removes the entry if
// the session has expired.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, exists := m.sessions[id]
	m.mu.RUnlock()
	if !exists {
		return nil, false
	}
	if s.IsExpired() {
		m.Remove(id)
		return nil, false
	}
	return s, true
}

// Remove closes and forgets the session under id, if any.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, exists := m.sessions[id]; exists {
		s.Close()
		delete(m.sessions, id)
	}
}

// List returns the ids of all tracked sessions.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of tracked sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stats summarizes active vs. expired sessions currently tracked.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Stats{TotalSessions: len(m.sessions)}
	for _, s := range m.sessions {
		if s.IsExpired() {
			stats.ExpiredSessions++
		} else {
			stats.ActiveSessions++
		}
	}
	return stats
}

// DefaultConfig returns the Manager's stored default Config. The Manager
// does not apply it to any session: Add and AddNew take an already-built
// Session, which keeps the Config it was created with.
func (m *Manager) DefaultConfig() Config { return m.defaultConfig }

// SetDefaultConfig replaces the stored default Config that DefaultConfig
// returns; sessions already tracked keep their own Config.
func (m *Manager) SetDefaultConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = cfg
}

// Close stops the cleanup loop and closes every tracked session.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stopCleanup) })
	m.cleanupTicker.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.Close()
	}
	m.sessions = make(map[string]*Session)
	return nil
}

func (m *Manager) runCleanup() {
	for {
		select {
		case <-m.cleanupTicker.C:
			m.cleanupExpired()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) cleanupExpired() {
	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if s.IsExpired() {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		m.sessions[id].Close()
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if len(expired) > 0 {
		logger.Info("session manager cleanup removed expired sessions", logger.Int("count", len(expired)))
	}
}
