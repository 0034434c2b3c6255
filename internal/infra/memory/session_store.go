package memory

import (
	"context"
	"sync"

	"quizgen-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore, suitable
// for tests and single-instance deployments.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.SessionQuiz
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.SessionQuiz),
	}
}

func (s *SessionStore) Put(_ context.Context, sessionID string, quiz domain.SessionQuiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = quiz
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (domain.SessionQuiz, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.sessions[sessionID]
	return quiz, ok, nil
}

func (s *SessionStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
