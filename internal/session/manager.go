package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/otiai10/consultbase/internal/store"
	"github.com/otiai10/consultbase/internal/user"
)

// Manager keeps independent sessions keyed by opaque token
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Store
	clients  store.ClientRepository
	opts     []Option
}

// NewManager creates a Manager whose sessions share one client collection
func NewManager(clients store.ClientRepository, opts ...Option) *Manager {
	return &Manager{
		sessions: make(map[string]*Store),
		clients:  clients,
		opts:     opts,
	}
}

// Open starts a session for u and returns its token
func (m *Manager) Open(u user.User) (string, *Store) {
	token := uuid.NewString()
	s := New(u, m.clients, m.opts...)

	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()

	return token, s
}

// Get returns the session for token
func (m *Manager) Get(token string) (*Store, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[token]
	return s, ok
}

// Close ends the session and its subscriptions. It reports whether the
// token was known.
func (m *Manager) Close(token string) bool {
	m.mu.Lock()
	s, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()

	if ok {
		s.closeSubscribers()
	}
	return ok
}

// Len returns the number of open sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
