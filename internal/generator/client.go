package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quizgen-service/internal/domain"
)

// Client calls an OpenAI-compatible chat-completions endpoint (OpenRouter,
// Ollama, vLLM, etc.) to generate multiple-choice questions.
type Client struct {
	baseURL string // e.g. "https://openrouter.ai/api/v1"
	apiKey  string
	model   string // e.g. "google/gemini-flash-1.5"
	httpc   *http.Client
}

// GenerationError is returned when question generation fails, so callers can
// distinguish "the service failed" from an empty result set.
type GenerationError struct {
	Reason  string
	Wrapped error
}

func (e *GenerationError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("quiz generation failed: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("quiz generation failed: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Wrapped
}

// NewClient creates a generation client. The timeout bounds the outbound call
// so a stuck provider surfaces as a failure instead of hanging the request.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpc:   &http.Client{Timeout: timeout},
	}
}

const systemPrompt = "You are a helpful quiz generator AI."

// Generate asks the model for count multiple-choice questions and returns the
// validated drafts. Any network failure, non-JSON reply, or shape violation
// fails with *GenerationError; no partial result is ever returned.
func (c *Client) Generate(ctx context.Context, category, subcategory string, count int, difficulty domain.Difficulty) ([]domain.QuestionDraft, error) {
	if count < 1 {
		return nil, &GenerationError{Reason: "question count must be at least 1"}
	}

	content, err := c.chat(ctx, buildPrompt(category, subcategory, count, difficulty))
	if err != nil {
		return nil, err
	}

	var drafts []domain.QuestionDraft
	if err := json.Unmarshal([]byte(stripFences(content)), &drafts); err != nil {
		return nil, &GenerationError{Reason: "model response is not a JSON question array", Wrapped: err}
	}
	if len(drafts) == 0 {
		return nil, &GenerationError{Reason: "model returned no questions"}
	}
	if len(drafts) != count {
		return nil, &GenerationError{Reason: fmt.Sprintf("asked for %d questions, got %d", count, len(drafts))}
	}
	for i, d := range drafts {
		if err := validateDraft(d); err != nil {
			return nil, &GenerationError{Reason: fmt.Sprintf("question %d is malformed", i), Wrapped: err}
		}
	}
	return drafts, nil
}

func buildPrompt(category, subcategory string, count int, difficulty domain.Difficulty) string {
	return fmt.Sprintf(`You are an AI Quiz Generator. Generate %d multiple-choice questions
for category '%s' and subcategory '%s'.

Each question must have 4 options (A,B,C,D), 1 correct answer, and difficulty %s.
Return strictly a JSON array like this:
[
  {
    "question": "...",
    "options": {"A": "...", "B": "...", "C": "...", "D": "..."},
    "answer": "A"
  }
]`, count, category, subcategory, difficulty)
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) chat(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return "", &GenerationError{Reason: "encode request", Wrapped: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &GenerationError{Reason: "build request", Wrapped: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &GenerationError{Reason: "generation service unreachable", Wrapped: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &GenerationError{Reason: fmt.Sprintf("generation service returned status %d", resp.StatusCode)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &GenerationError{Reason: "decode completion response", Wrapped: err}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &GenerationError{Reason: "completion has no content"}
	}
	return parsed.Choices[0].Message.Content, nil
}

// stripFences removes a surrounding markdown code fence; models add them even
// when told not to. Anything else is left untouched for the JSON parser to
// reject.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func validateDraft(d domain.QuestionDraft) error {
	if strings.TrimSpace(d.Text) == "" {
		return fmt.Errorf("empty question text")
	}
	if len(d.Options) != len(domain.OptionLabels) {
		return fmt.Errorf("expected %d options, got %d", len(domain.OptionLabels), len(d.Options))
	}
	for _, label := range domain.OptionLabels {
		if _, ok := d.Options[label]; !ok {
			return fmt.Errorf("missing option %q", label)
		}
	}
	if _, ok := d.Options[d.Answer]; !ok {
		return fmt.Errorf("answer %q is not one of the option labels", d.Answer)
	}
	return nil
}
