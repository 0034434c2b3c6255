package memory

import (
	"context"
	"sync"

	"quizgen-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserStore.
type UserStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User // keyed by email
	profiles map[string]domain.Profile
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:    make(map[string]domain.User),
		profiles: make(map[string]domain.Profile),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return domain.ErrEmailTaken
	}
	s.users[user.Email] = user
	return nil
}

func (s *UserStore) CreateProfile(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// GetProfile is used by tests to verify explicit profile creation.
func (s *UserStore) GetProfile(_ context.Context, userID string) (domain.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	return profile, ok
}
