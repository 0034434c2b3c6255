package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizgen-service/internal/domain"
)

const twoQuestionJSON = `[
  {"question": "What is 2 + 2?", "options": {"A": "3", "B": "4", "C": "5", "D": "6"}, "answer": "B"},
  {"question": "Capital of France?", "options": {"A": "Lyon", "B": "Nice", "C": "Paris", "D": "Lille"}, "answer": "C"}
]`

func completionServer(t *testing.T, status int, content string, lastReq *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if lastReq != nil {
			_ = json.NewDecoder(r.Body).Decode(lastReq)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}))
}

func TestGenerateParsesQuestions(t *testing.T) {
	var lastReq map[string]any
	server := completionServer(t, http.StatusOK, twoQuestionJSON, &lastReq)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "google/gemini-flash-1.5", time.Second)
	drafts, err := client.Generate(context.Background(), "Science", "Physics", 2, domain.DifficultyEasy)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
	if drafts[0].Answer != "B" || drafts[1].Options["C"] != "Paris" {
		t.Fatalf("unexpected drafts: %+v", drafts)
	}

	if lastReq["model"] != "google/gemini-flash-1.5" {
		t.Fatalf("unexpected model: %v", lastReq["model"])
	}
	messages, ok := lastReq["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %v", lastReq["messages"])
	}
	format, ok := lastReq["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", lastReq["response_format"])
	}
}

func TestGenerateStripsCodeFence(t *testing.T) {
	fenced := "```json\n" + twoQuestionJSON + "\n```"
	server := completionServer(t, http.StatusOK, fenced, nil)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "m", time.Second)
	drafts, err := client.Generate(context.Background(), "Science", "Physics", 2, domain.DifficultyEasy)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
}

func TestGenerateRejectsBadResponses(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		content string
		count   int
	}{
		{name: "malformed json", status: http.StatusOK, content: "here are your questions!", count: 2},
		{name: "empty array", status: http.StatusOK, content: "[]", count: 2},
		{name: "wrong count", status: http.StatusOK, content: twoQuestionJSON, count: 5},
		{name: "server error", status: http.StatusInternalServerError, content: "", count: 2},
		{
			name:    "missing option",
			status:  http.StatusOK,
			content: `[{"question": "Q", "options": {"A": "1", "B": "2", "C": "3"}, "answer": "A"}]`,
			count:   1,
		},
		{
			name:    "answer not a label",
			status:  http.StatusOK,
			content: `[{"question": "Q", "options": {"A": "1", "B": "2", "C": "3", "D": "4"}, "answer": "E"}]`,
			count:   1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := completionServer(t, tc.status, tc.content, nil)
			defer server.Close()

			client := NewClient(server.URL, "test-key", "m", time.Second)
			_, err := client.Generate(context.Background(), "Science", "Physics", tc.count, domain.DifficultyEasy)
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("expected GenerationError, got %v", err)
			}
		})
	}
}

func TestGenerateRejectsZeroCount(t *testing.T) {
	client := NewClient("http://localhost:0", "test-key", "m", time.Second)
	var genErr *GenerationError
	if _, err := client.Generate(context.Background(), "Science", "Physics", 0, domain.DifficultyEasy); !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestGenerateUnreachableService(t *testing.T) {
	server := completionServer(t, http.StatusOK, twoQuestionJSON, nil)
	server.Close() // shut down before calling

	client := NewClient(server.URL, "test-key", "m", time.Second)
	var genErr *GenerationError
	if _, err := client.Generate(context.Background(), "Science", "Physics", 2, domain.DifficultyEasy); !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}
