package app

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"quizgen-service/internal/domain"
)

// Generator produces question drafts from the external AI service.
type Generator interface {
	Generate(ctx context.Context, category, subcategory string, count int, difficulty domain.Difficulty) ([]domain.QuestionDraft, error)
}

// SessionStore holds the in-flight quiz state keyed by session identity
// (in-memory, Redis, etc).
type SessionStore interface {
	Put(ctx context.Context, sessionID string, quiz domain.SessionQuiz) error
	Get(ctx context.Context, sessionID string) (domain.SessionQuiz, bool, error)
	// Clear removes any stored quiz state. Clearing an absent session is a no-op.
	Clear(ctx context.Context, sessionID string) error
}

// TaxonomyRepository resolves the category tree (from cache/backing store).
type TaxonomyRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (domain.Category, error)
	GetSubCategory(ctx context.Context, id string) (domain.SubCategory, error)
}

// HistoryFilter narrows history listings; empty fields match everything.
type HistoryFilter struct {
	CategoryID    string
	SubCategoryID string
}

// AttemptStore persists quizzes and their history rows.
type AttemptStore interface {
	// CreateAttempt writes the quiz and its pending history row atomically.
	CreateAttempt(ctx context.Context, quiz domain.Quiz, history domain.QuizHistory) error
	GetHistory(ctx context.Context, historyID string) (domain.QuizHistory, error)
	// FinalizeHistory transitions a pending history row to completed. It must
	// refuse rows that are already completed (domain.ErrAttemptCompleted).
	FinalizeHistory(ctx context.Context, historyID string, correct int, score float64, completedAt time.Time) error
	// ListCompleted returns the user's completed attempts, newest first.
	ListCompleted(ctx context.Context, userID string) ([]domain.HistoryEntry, error)
	ListHistoryPage(ctx context.Context, userID string, page int, pageSize int, filter HistoryFilter) (domain.HistoryPage, error)
}

// historyPageSize is the fixed page size for history listings.
const historyPageSize = 10

// QuizService drives the quiz-attempt lifecycle: generation, play, grading.
type QuizService struct {
	generator Generator
	sessions  SessionStore
	taxonomy  TaxonomyRepository
	attempts  AttemptStore
	log       *logrus.Entry
	clock     func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizService(gen Generator, sessions SessionStore, taxonomy TaxonomyRepository, attempts AttemptStore, log *logrus.Entry) *QuizService {
	return NewQuizServiceWithClock(gen, sessions, taxonomy, attempts, log, time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewQuizServiceWithClock is for deterministic timestamps and shuffles in tests.
func NewQuizServiceWithClock(gen Generator, sessions SessionStore, taxonomy TaxonomyRepository, attempts AttemptStore, log *logrus.Entry, now func() time.Time, rnd *rand.Rand) *QuizService {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &QuizService{
		generator: gen,
		sessions:  sessions,
		taxonomy:  taxonomy,
		attempts:  attempts,
		log:       log,
		clock:     now,
		rnd:       rnd,
	}
}

// Categories lists the taxonomy for the topic picker.
func (s *QuizService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.taxonomy.ListCategories(ctx)
}

// Begin runs the full quiz-generation sequence: resolve the taxonomy, fetch
// drafts from the generator, shuffle option order, then atomically create the
// Quiz and pending QuizHistory rows and stash the question set in the session.
// The generator call happens before any persistent write, so a generation
// failure leaves no orphaned rows.
func (s *QuizService) Begin(ctx context.Context, sessionID, userID, categoryID, subcategoryID string, difficulty domain.Difficulty, count int) (domain.StartedAttempt, error) {
	cat, err := s.taxonomy.GetCategory(ctx, categoryID)
	if err != nil {
		return domain.StartedAttempt{}, err
	}
	sub, err := s.taxonomy.GetSubCategory(ctx, subcategoryID)
	if err != nil {
		return domain.StartedAttempt{}, err
	}
	if sub.CategoryID != cat.ID {
		return domain.StartedAttempt{}, domain.ErrSubCategoryNotFound
	}

	drafts, err := s.generator.Generate(ctx, cat.Name, sub.Name, count, difficulty)
	if err != nil {
		s.log.WithFields(logrus.Fields{"category": cat.Name, "subcategory": sub.Name}).
			WithError(err).Warn("quiz generation failed")
		return domain.StartedAttempt{}, err
	}

	shuffled := make([]domain.QuestionDraft, len(drafts))
	s.mu.Lock()
	for i, d := range drafts {
		shuffled[i] = shuffleDraft(s.rnd, d)
	}
	s.mu.Unlock()

	now := s.clock()
	quiz := domain.Quiz{
		ID:            uuid.NewString(),
		Title:         fmt.Sprintf("AI Quiz - %s (%s)", sub.Name, difficulty),
		Description:   fmt.Sprintf("AI generated quiz in %s", sub.Name),
		Difficulty:    difficulty,
		CategoryID:    cat.ID,
		SubCategoryID: sub.ID,
		CreatedAt:     now,
	}
	history := domain.QuizHistory{
		ID:             uuid.NewString(),
		UserID:         userID,
		QuizID:         quiz.ID,
		TotalQuestions: len(shuffled),
		StartedAt:      now,
	}

	if err := s.attempts.CreateAttempt(ctx, quiz, history); err != nil {
		return domain.StartedAttempt{}, err
	}
	if err := s.sessions.Put(ctx, sessionID, domain.SessionQuiz{HistoryID: history.ID, Questions: shuffled}); err != nil {
		return domain.StartedAttempt{}, fmt.Errorf("store session quiz: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"history_id": history.ID,
		"category":   cat.Name,
		"questions":  len(shuffled),
		"difficulty": difficulty,
	}).Info("quiz attempt started")

	return domain.StartedAttempt{HistoryID: history.ID, QuizID: quiz.ID, Total: len(shuffled)}, nil
}

// Question returns the question at index with the correct label withheld.
func (s *QuizService) Question(ctx context.Context, sessionID string, index int) (domain.QuestionView, error) {
	sq, ok, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.QuestionView{}, err
	}
	if !ok {
		return domain.QuestionView{}, domain.ErrNoActiveQuiz
	}
	if index < 0 || index >= len(sq.Questions) {
		return domain.QuestionView{}, domain.ErrQuestionIndex
	}
	q := sq.Questions[index]
	return domain.QuestionView{
		Index:   index,
		Total:   len(sq.Questions),
		Text:    q.Text,
		Options: q.Options,
	}, nil
}

// Submit grades the session's quiz against the stored answer key, finalizes
// the history row exactly once, and clears the session state. Absent answers
// count as incorrect.
func (s *QuizService) Submit(ctx context.Context, sessionID, userID string, answers map[int]string) (domain.GradeResult, error) {
	sq, ok, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.GradeResult{}, err
	}
	if !ok {
		return domain.GradeResult{}, domain.ErrNoActiveQuiz
	}

	history, err := s.attempts.GetHistory(ctx, sq.HistoryID)
	if err != nil {
		return domain.GradeResult{}, err
	}
	if history.UserID != userID {
		return domain.GradeResult{}, domain.ErrHistoryNotFound
	}
	if history.CompletedAt != nil {
		return domain.GradeResult{}, domain.ErrAttemptCompleted
	}

	total := len(sq.Questions)
	correct := 0
	review := make([]domain.AnswerReview, 0, total)
	for i, q := range sq.Questions {
		submitted := answers[i] // absent submissions grade as incorrect
		isCorrect := submitted == q.Answer
		if isCorrect {
			correct++
		}
		review = append(review, domain.AnswerReview{
			Question:  q.Text,
			Options:   q.Options,
			Submitted: submitted,
			Correct:   q.Answer,
			IsCorrect: isCorrect,
		})
	}

	score := 0.0
	if total > 0 {
		score = round2(100 * float64(correct) / float64(total))
	}

	if err := s.attempts.FinalizeHistory(ctx, history.ID, correct, score, s.clock()); err != nil {
		return domain.GradeResult{}, err
	}
	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		s.log.WithError(err).Warn("clearing graded session failed")
	}

	s.log.WithFields(logrus.Fields{
		"history_id": history.ID,
		"score":      score,
		"correct":    correct,
		"total":      total,
	}).Info("quiz attempt graded")

	return domain.GradeResult{Score: score, Correct: correct, Total: total, Review: review}, nil
}

// Abandon drops any in-flight quiz state for the session. Idempotent.
func (s *QuizService) Abandon(ctx context.Context, sessionID string) error {
	return s.sessions.Clear(ctx, sessionID)
}

// History lists the user's completed attempts, newest first, with the fixed
// page size.
func (s *QuizService) History(ctx context.Context, userID string, page int, filter HistoryFilter) (domain.HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	return s.attempts.ListHistoryPage(ctx, userID, page, historyPageSize, filter)
}

// ParseAnswers converts the wire form of a submission (string indices, as
// posted by the quiz form) into the grading map. Non-numeric keys are dropped.
func ParseAnswers(raw map[string]string) map[int]string {
	answers := make(map[int]string, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		answers[idx] = v
	}
	return answers
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
