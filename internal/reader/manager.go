package reader

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/CoreX20/library-app/internal/entities"
)

// ErrSessionNotFound means no live session carries the given ID.
var ErrSessionNotFound = errors.New("reader session not found")

// Manager owns every live reader session in the process. Sessions are
// addressed by their ID; a user opening a book they already have open
// replaces the old session, so at most one session exists per
// (user, book) pair.
type Manager struct {
	cfg SessionConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg SessionConfig) *Manager {
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session for userID reading book and registers it.
func (m *Manager) Open(ctx context.Context, userID string, book *entities.Book) (*Session, error) {
	m.mu.Lock()
	var stale *Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.BookID == book.ID {
			stale = s
			delete(m.sessions, s.ID)
			break
		}
	}
	m.mu.Unlock()
	if stale != nil {
		if err := stale.Close(); err != nil {
			log.Printf("closing replaced session %s: %v", stale.ID, err)
		}
	}

	session, err := OpenSession(ctx, m.cfg, userID, book)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()
	return session, nil
}

// Get looks up a live session. Ownership checks are the caller's job.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close terminates and deregisters one session.
func (m *Manager) Close(sessionID string) error {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	return session.Close()
}

// ReapIdle closes every session with no position activity for ttl or
// longer and reports how many were reaped. An unflushed position is not
// lost: it stays in the local cache and reconciles on the next open.
func (m *Manager) ReapIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.LastActivity().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		if err := s.Close(); err != nil {
			log.Printf("reaping session %s: %v", s.ID, err)
		}
	}
	return len(idle)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session. Used on process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		if err := s.Close(); err != nil {
			log.Printf("closing session %s on shutdown: %v", s.ID, err)
		}
	}
}
