package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"quizgen-service/internal/app"
	"quizgen-service/internal/domain"
)

func attemptTaxonomy() []domain.Category {
	return []domain.Category{
		{ID: "cat-1", Name: "Science"},
		{ID: "cat-2", Name: "History"},
	}
}

func addCompleted(t *testing.T, store *AttemptStore, id, userID, catID string, score float64, completed time.Time) {
	t.Helper()
	ctx := context.Background()
	quiz := domain.Quiz{
		ID:         "quiz-" + id,
		Title:      "AI Quiz - " + id,
		Difficulty: domain.DifficultyEasy,
		CategoryID: catID,
		CreatedAt:  completed.Add(-time.Minute),
	}
	history := domain.QuizHistory{
		ID:             id,
		UserID:         userID,
		QuizID:         quiz.ID,
		TotalQuestions: 10,
		StartedAt:      completed.Add(-time.Minute),
	}
	if err := store.CreateAttempt(ctx, quiz, history); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	if err := store.FinalizeHistory(ctx, id, int(score/10), score, completed); err != nil {
		t.Fatalf("finalize: %v", err)
	}
}

func TestAttemptStoreFinalizeOnce(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore(attemptTaxonomy())

	started := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	quiz := domain.Quiz{ID: "q1", Title: "AI Quiz - Physics (easy)", CategoryID: "cat-1", Difficulty: domain.DifficultyEasy, CreatedAt: started}
	history := domain.QuizHistory{ID: "h1", UserID: "u1", QuizID: "q1", TotalQuestions: 3, StartedAt: started}
	if err := store.CreateAttempt(ctx, quiz, history); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	got, err := store.GetHistory(ctx, "h1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if got.CompletedAt != nil {
		t.Fatalf("fresh attempt should be pending: %+v", got)
	}

	completed := started.Add(2 * time.Minute)
	if err := store.FinalizeHistory(ctx, "h1", 2, 66.67, completed); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := store.FinalizeHistory(ctx, "h1", 3, 100, completed); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected completed error, got %v", err)
	}
	if err := store.FinalizeHistory(ctx, "missing", 1, 10, completed); !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	got, _ = store.GetHistory(ctx, "h1")
	if got.CompletedAt == nil || got.Score != 66.67 || got.CorrectAnswers != 2 {
		t.Fatalf("unexpected finalized history: %+v", got)
	}
}

func TestAttemptStoreListCompleted(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore(attemptTaxonomy())

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	addCompleted(t, store, "h1", "u1", "cat-1", 80, base)
	addCompleted(t, store, "h2", "u1", "cat-2", 60, base.Add(24*time.Hour))
	addCompleted(t, store, "h3", "u2", "cat-1", 90, base.Add(48*time.Hour))

	// pending attempts never show up
	if err := store.CreateAttempt(ctx, domain.Quiz{ID: "q-p", CategoryID: "cat-1"}, domain.QuizHistory{ID: "h-p", UserID: "u1", QuizID: "q-p"}); err != nil {
		t.Fatalf("create pending: %v", err)
	}

	entries, err := store.ListCompleted(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "h2" || entries[1].ID != "h1" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	if entries[0].CategoryName != "History" || entries[1].CategoryName != "Science" {
		t.Fatalf("expected category names resolved, got %+v", entries)
	}
}

func TestAttemptStoreHistoryPaging(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore(attemptTaxonomy())

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		catID := "cat-1"
		if i%2 == 0 {
			catID = "cat-2"
		}
		addCompleted(t, store, fmt.Sprintf("h%02d", i), "u1", catID, 50, base.Add(time.Duration(i)*time.Hour))
	}

	page, err := store.ListHistoryPage(ctx, "u1", 1, 10, app.HistoryFilter{})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page.Items) != 10 || page.TotalItems != 12 || page.TotalPages != 2 || page.Page != 1 {
		t.Fatalf("unexpected page 1: %+v", page)
	}
	if page.Items[0].ID != "h11" {
		t.Fatalf("expected newest attempt first, got %+v", page.Items[0])
	}

	page, err = store.ListHistoryPage(ctx, "u1", 2, 10, app.HistoryFilter{})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page.Items) != 2 || page.Page != 2 {
		t.Fatalf("unexpected page 2: %+v", page)
	}

	// out-of-range pages clamp to the last page
	page, err = store.ListHistoryPage(ctx, "u1", 9, 10, app.HistoryFilter{})
	if err != nil {
		t.Fatalf("page 9: %v", err)
	}
	if page.Page != 2 || len(page.Items) != 2 {
		t.Fatalf("expected clamp to last page, got %+v", page)
	}

	filtered, err := store.ListHistoryPage(ctx, "u1", 1, 10, app.HistoryFilter{CategoryID: "cat-2"})
	if err != nil {
		t.Fatalf("filtered: %v", err)
	}
	if filtered.TotalItems != 6 {
		t.Fatalf("expected 6 filtered items, got %+v", filtered)
	}
}
