package app_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"quizgen-service/internal/app"
	"quizgen-service/internal/domain"
	"quizgen-service/internal/infra/memory"
)

type stubGenerator struct {
	drafts []domain.QuestionDraft
	err    error
	calls  int
}

func (g *stubGenerator) Generate(_ context.Context, _, _ string, _ int, _ domain.Difficulty) ([]domain.QuestionDraft, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.drafts, nil
}

type fixture struct {
	service  *app.QuizService
	gen      *stubGenerator
	sessions *memory.SessionStore
	attempts *memory.AttemptStore
}

func newFixture(gen *stubGenerator) fixture {
	taxonomy := memory.NewTaxonomyCache(memory.NewStaticTaxonomyLoader(testTaxonomy()), time.Minute)
	sessions := memory.NewSessionStore()
	attempts := memory.NewAttemptStore(testTaxonomy())
	clock := func() time.Time { return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC) }
	service := app.NewQuizServiceWithClock(gen, sessions, taxonomy, attempts, nil, clock, rand.New(rand.NewSource(7)))
	return fixture{service: service, gen: gen, sessions: sessions, attempts: attempts}
}

func testTaxonomy() []domain.Category {
	return []domain.Category{
		{
			ID:   "cat-1",
			Name: "Science",
			SubCategories: []domain.SubCategory{
				{ID: "sub-1", Name: "Physics", CategoryID: "cat-1"},
			},
		},
		{
			ID:   "cat-2",
			Name: "History",
			SubCategories: []domain.SubCategory{
				{ID: "sub-2", Name: "World History", CategoryID: "cat-2"},
			},
		},
	}
}

func sampleDrafts() []domain.QuestionDraft {
	return []domain.QuestionDraft{
		{
			Text:    "What is 2 + 2?",
			Options: map[string]string{"A": "3", "B": "4", "C": "5", "D": "6"},
			Answer:  "B",
		},
		{
			Text:    "Boiling point of water in Celsius?",
			Options: map[string]string{"A": "100", "B": "90", "C": "120", "D": "80"},
			Answer:  "A",
		},
		{
			Text:    "Speed of light is about?",
			Options: map[string]string{"A": "3 km/s", "B": "300 km/s", "C": "3000 km/s", "D": "300000 km/s"},
			Answer:  "D",
		},
	}
}

// answerKey reads the shuffled answers out of the stored session state.
func answerKey(t *testing.T, sessions *memory.SessionStore, sessionID string) (domain.SessionQuiz, map[int]string) {
	t.Helper()
	sq, ok, err := sessions.Get(context.Background(), sessionID)
	if err != nil || !ok {
		t.Fatalf("expected stored session quiz, ok=%v err=%v", ok, err)
	}
	key := make(map[int]string, len(sq.Questions))
	for i, q := range sq.Questions {
		key[i] = q.Answer
	}
	return sq, key
}

func wrongLabel(answer string) string {
	for _, label := range domain.OptionLabels {
		if label != answer {
			return label
		}
	}
	return answer
}

func TestBeginCreatesAttemptAndSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(&stubGenerator{drafts: sampleDrafts()})

	attempt, err := f.service.Begin(ctx, "s1", "u1", "cat-1", "sub-1", domain.DifficultyEasy, 3)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if attempt.Total != 3 || attempt.HistoryID == "" || attempt.QuizID == "" {
		t.Fatalf("unexpected attempt: %+v", attempt)
	}

	history, err := f.attempts.GetHistory(ctx, attempt.HistoryID)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if history.UserID != "u1" || history.TotalQuestions != 3 || history.CompletedAt != nil {
		t.Fatalf("unexpected history: %+v", history)
	}

	sq, _ := answerKey(t, f.sessions, "s1")
	if sq.HistoryID != attempt.HistoryID || len(sq.Questions) != 3 {
		t.Fatalf("unexpected session quiz: %+v", sq)
	}
}

func TestBeginRejectsUnknownTaxonomy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(&stubGenerator{drafts: sampleDrafts()})

	if _, err := f.service.Begin(ctx, "s1", "u1", "nope", "sub-1", domain.DifficultyEasy, 3); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected category error, got %v", err)
	}
	// sub-2 exists but belongs to cat-2
	if _, err := f.service.Begin(ctx, "s1", "u1", "cat-1", "sub-2", domain.DifficultyEasy, 3); !errors.Is(err, domain.ErrSubCategoryNotFound) {
		t.Fatalf("expected subcategory error, got %v", err)
	}
	if f.gen.calls != 0 {
		t.Fatalf("generator should not be called, got %d calls", f.gen.calls)
	}
}

func TestBeginGenerationFailureLeavesNoSession(t *testing.T) {
	ctx := context.Background()
	genErr := errors.New("provider down")
	f := newFixture(&stubGenerator{err: genErr})

	if _, err := f.service.Begin(ctx, "s1", "u1", "cat-1", "sub-1", domain.DifficultyEasy, 3); !errors.Is(err, genErr) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if _, ok, _ := f.sessions.Get(ctx, "s1"); ok {
		t.Fatalf("expected no session quiz after failed generation")
	}
}

func TestQuestionWithholdsAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(&stubGenerator{drafts: sampleDrafts()})

	if _, err := f.service.Begin(ctx, "s1", "u1", "cat-1", "sub-1", domain.DifficultyMedium, 3); err != nil {
		t.Fatalf("begin: %v", err)
	}

	view, err := f.service.Question(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if view.Index != 0 || view.Total != 3 || view.Text == "" || len(view.Options) != 4 {
		t.Fatalf("unexpected view: %+v", view)
	}

	if _, err := f.service.Question(ctx, "s1", 3); !errors.Is(err, domain.ErrQuestionIndex) {
		t.Fatalf("expected index error, got %v", err)
	}
	if _, err := f.service.Question(ctx, "s1", -1); !errors.Is(err, domain.ErrQuestionIndex) {
		t.Fatalf("expected index error, got %v", err)
	}
	if _, err := f.service.Question(ctx, "other-session", 0); !errors.Is(err, domain.ErrNoActiveQuiz) {
		t.Fatalf("expected no active quiz, got %v", err)
	}
}

func TestSubmitGradesAndFinalizes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(&stubGenerator{drafts: sampleDrafts()})

	attempt, err := f.service.Begin(ctx, "s1", "u1", "cat-1", "sub-1", domain.DifficultyEasy, 3)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, key := answerKey(t, f.sessions, "s1")

	// one correct, one wrong, one unanswered
	answers := map[int]string{
		0: key[0],
		1: wrongLabel(key[1]),
	}
	result, err := f.service.Submit(ctx, "s1", "u1", answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Correct != 1 || result.Total != 3 || result.Score != 33.33 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Review) != 3 {
		t.Fatalf("expected 3 review rows, got %d", len(result.Review))
	}
	if result.Review[2].Submitted != "" || result.Review[2].IsCorrect {
		t.Fatalf("unanswered question should grade incorrect: %+v", result.Review[2])
	}

	history, err := f.attempts.GetHistory(ctx, attempt.HistoryID)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if history.CompletedAt == nil || history.CorrectAnswers != 1 || history.Score != 33.33 {
		t.Fatalf("history not finalized: %+v", history)
	}

	if _, err := f.service.Submit(ctx, "s1", "u1", answers); !errors.Is(err, domain.ErrNoActiveQuiz) {
		t.Fatalf("expected no active quiz after grading, got %v", err)
	}
}

func TestSubmitRejectsForeignHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(&stubGenerator{drafts: sampleDrafts()})

	attempt, err := f.service.Begin(ctx, "s1", "u1", "cat-1", "sub-1", domain.DifficultyEasy, 3)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := f.service.Submit(ctx, "s1", "u2", nil); !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Fatalf("expected history error, got %v", err)
	}

	history, _ := f.attempts.GetHistory(ctx, attempt.HistoryID)
	if history.CompletedAt != nil {
		t.Fatalf("foreign submit must not finalize the attempt")
	}
}

func TestSubmitRefusesCompletedAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(&stubGenerator{drafts: sampleDrafts()})

	if _, err := f.service.Begin(ctx, "s1", "u1", "cat-1", "sub-1", domain.DifficultyEasy, 3); err != nil {
		t.Fatalf("begin: %v", err)
	}
	sq, key := answerKey(t, f.sessions, "s1")
	if _, err := f.service.Submit(ctx, "s1", "u1", key); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A stale client re-posting the same session state must not re-grade.
	if err := f.sessions.Put(ctx, "s1", sq); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := f.service.Submit(ctx, "s1", "u1", key); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected completed error, got %v", err)
	}
}

func TestAbandonClearsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(&stubGenerator{drafts: sampleDrafts()})

	if _, err := f.service.Begin(ctx, "s1", "u1", "cat-1", "sub-1", domain.DifficultyEasy, 3); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := f.service.Abandon(ctx, "s1"); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if _, ok, _ := f.sessions.Get(ctx, "s1"); ok {
		t.Fatalf("expected session cleared")
	}
	// abandoning twice is fine
	if err := f.service.Abandon(ctx, "s1"); err != nil {
		t.Fatalf("second abandon: %v", err)
	}
}

func TestParseAnswersDropsNonNumericKeys(t *testing.T) {
	got := app.ParseAnswers(map[string]string{"0": "A", "2": "C", "oops": "B"})
	if len(got) != 2 || got[0] != "A" || got[2] != "C" {
		t.Fatalf("unexpected answers: %+v", got)
	}
}
