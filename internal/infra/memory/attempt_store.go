package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizgen-service/internal/app"
	"quizgen-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore. Category
// names for history entries are resolved against the taxonomy it was built
// with.
type AttemptStore struct {
	mu            sync.RWMutex
	quizzes       map[string]domain.Quiz
	histories     map[string]domain.QuizHistory
	categoryNames map[string]string
}

func NewAttemptStore(taxonomy []domain.Category) *AttemptStore {
	names := make(map[string]string, len(taxonomy))
	for _, c := range taxonomy {
		names[c.ID] = c.Name
	}
	return &AttemptStore{
		quizzes:       make(map[string]domain.Quiz),
		histories:     make(map[string]domain.QuizHistory),
		categoryNames: names,
	}
}

func (s *AttemptStore) CreateAttempt(_ context.Context, quiz domain.Quiz, history domain.QuizHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz
	s.histories[history.ID] = history
	return nil
}

func (s *AttemptStore) GetHistory(_ context.Context, historyID string) (domain.QuizHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history, ok := s.histories[historyID]
	if !ok {
		return domain.QuizHistory{}, domain.ErrHistoryNotFound
	}
	return history, nil
}

func (s *AttemptStore) FinalizeHistory(_ context.Context, historyID string, correct int, score float64, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, ok := s.histories[historyID]
	if !ok {
		return domain.ErrHistoryNotFound
	}
	if history.CompletedAt != nil {
		return domain.ErrAttemptCompleted
	}
	history.CorrectAnswers = correct
	history.Score = score
	history.CompletedAt = &completedAt
	s.histories[historyID] = history
	return nil
}

func (s *AttemptStore) ListCompleted(_ context.Context, userID string) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completedLocked(userID, app.HistoryFilter{}), nil
}

func (s *AttemptStore) ListHistoryPage(_ context.Context, userID string, page, pageSize int, filter app.HistoryFilter) (domain.HistoryPage, error) {
	s.mu.RLock()
	entries := s.completedLocked(userID, filter)
	s.mu.RUnlock()

	total := len(entries)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return domain.HistoryPage{
		Items:      entries[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

func (s *AttemptStore) completedLocked(userID string, filter app.HistoryFilter) []domain.HistoryEntry {
	var entries []domain.HistoryEntry
	for _, h := range s.histories {
		if h.UserID != userID || h.CompletedAt == nil {
			continue
		}
		quiz := s.quizzes[h.QuizID]
		if filter.CategoryID != "" && quiz.CategoryID != filter.CategoryID {
			continue
		}
		if filter.SubCategoryID != "" && quiz.SubCategoryID != filter.SubCategoryID {
			continue
		}
		entries = append(entries, domain.HistoryEntry{
			ID:             h.ID,
			QuizTitle:      quiz.Title,
			CategoryID:     quiz.CategoryID,
			CategoryName:   s.categoryNames[quiz.CategoryID],
			SubCategoryID:  quiz.SubCategoryID,
			Difficulty:     quiz.Difficulty,
			Score:          h.Score,
			TotalQuestions: h.TotalQuestions,
			CorrectAnswers: h.CorrectAnswers,
			StartedAt:      h.StartedAt,
			CompletedAt:    *h.CompletedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CompletedAt.After(entries[j].CompletedAt)
	})
	return entries
}
