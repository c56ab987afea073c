package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/spotdiff/internal/models"
)

type SessionStore struct {
	sessions map[string]*models.Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.Session),
	}
}

func (s *SessionStore) Get(sessionID string) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(session *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
}

// List returns all sessions, oldest first
func (s *SessionStore) List() []*models.Session {
	s.mu.RLock()
	result := make([]*models.Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		vi, vj := result[i].View(), result[j].View()
		if vi.CreatedAt.Equal(vj.CreatedAt) {
			return vi.ID < vj.ID
		}
		return vi.CreatedAt.Before(vj.CreatedAt)
	})
	return result
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
