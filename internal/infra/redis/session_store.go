package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quizgen-service/internal/domain"
)

// SessionStore keeps each session's in-flight quiz as a JSON value in Redis,
// so attempts survive process restarts and multiple instances can serve the
// same player. Keys expire with the TTL; an expired attempt simply becomes
// "no active quiz".
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Put(ctx context.Context, sessionID string, quiz domain.SessionQuiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal session quiz: %w", err)
	}
	return s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.SessionQuiz, bool, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SessionQuiz{}, false, nil
	}
	if err != nil {
		return domain.SessionQuiz{}, false, err
	}
	var quiz domain.SessionQuiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.SessionQuiz{}, false, fmt.Errorf("unmarshal session quiz: %w", err)
	}
	return quiz, true, nil
}

func (s *SessionStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
