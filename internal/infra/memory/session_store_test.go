package memory

import (
	"context"
	"testing"

	"quizgen-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	quiz := domain.SessionQuiz{
		HistoryID: "h1",
		Questions: []domain.QuestionDraft{
			{
				Text:    "What is 2 + 2?",
				Options: map[string]string{"A": "3", "B": "4", "C": "5", "D": "6"},
				Answer:  "B",
			},
		},
	}

	if _, ok, _ := store.Get(ctx, "s1"); ok {
		t.Fatalf("expected empty store")
	}

	if err := store.Put(ctx, "s1", quiz); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := store.Get(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("expected stored quiz, ok=%v err=%v", ok, err)
	}
	if got.HistoryID != "h1" || len(got.Questions) != 1 {
		t.Fatalf("unexpected quiz: %+v", got)
	}

	if err := store.Clear(ctx, "s1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "s1"); ok {
		t.Fatalf("expected quiz removed")
	}
	// clearing an absent session is a no-op
	if err := store.Clear(ctx, "s1"); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}
