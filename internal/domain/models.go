package domain

import "time"

// Difficulty is the requested difficulty of a generated quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes a user-supplied difficulty string.
func ParseDifficulty(raw string) (Difficulty, bool) {
	switch Difficulty(raw) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(raw), true
	}
	return "", false
}

// OptionLabels is the canonical label order for the four option slots.
var OptionLabels = []string{"A", "B", "C", "D"}

// QuestionDraft is a generated question: text, four labeled options, and the
// label of the correct option. Drafts live only in the quiz session; they are
// never written to the questions table.
type QuestionDraft struct {
	Text    string            `json:"question"`
	Options map[string]string `json:"options"`
	Answer  string            `json:"answer"`
}

// SessionQuiz is the in-flight state of one quiz attempt, owned by a single
// user session: the shuffled question set plus the pending history row it
// will finalize.
type SessionQuiz struct {
	HistoryID string          `json:"historyId"`
	Questions []QuestionDraft `json:"questions"`
}

// QuestionView is the player-facing slice of a draft. The correct label is
// deliberately absent so the answer key never reaches the client.
type QuestionView struct {
	Index   int               `json:"index"`
	Total   int               `json:"total"`
	Text    string            `json:"question"`
	Options map[string]string `json:"options"`
}

// Category is a top-level quiz topic.
type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	SubCategories []SubCategory `json:"subcategories,omitempty"`
}

// SubCategory belongs to exactly one Category.
type SubCategory struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"categoryId"`
}

// Quiz is one generated quiz instance. Immutable after creation.
type Quiz struct {
	ID            string
	Title         string
	Description   string
	Difficulty    Difficulty
	CategoryID    string
	SubCategoryID string // optional
	CreatedAt     time.Time
}

// QuizHistory is the durable record of one attempt. CompletedAt is nil while
// the attempt is in progress and is set exactly once by grading.
type QuizHistory struct {
	ID             string
	UserID         string
	QuizID         string
	Score          float64
	TotalQuestions int
	CorrectAnswers int
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// UserAnswer links a history row to a stored question with the selected
// option. Only authored quizzes produce these; AI-generated attempts keep
// their per-question detail ephemeral.
type UserAnswer struct {
	ID         string
	HistoryID  string
	QuestionID string
	Selected   string
	IsCorrect  bool
}

// User is an account identity. Authentication itself happens upstream.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	IsAdmin      bool
	CreatedAt    time.Time
}

// Profile holds display data for a user, created explicitly at registration.
type Profile struct {
	ID        string
	UserID    string
	FullName  string
	Bio       string
	AvatarURL string
}

// AnswerReview is the per-question grading breakdown shown after submission.
// It is rendered to the user, never persisted.
type AnswerReview struct {
	Question  string            `json:"question"`
	Options   map[string]string `json:"options"`
	Submitted string            `json:"submitted"`
	Correct   string            `json:"correct"`
	IsCorrect bool              `json:"isCorrect"`
}

// GradeResult is the outcome of grading one attempt.
type GradeResult struct {
	Score   float64        `json:"score"`
	Correct int            `json:"correct"`
	Total   int            `json:"total"`
	Review  []AnswerReview `json:"review"`
}

// StartedAttempt identifies a freshly created attempt.
type StartedAttempt struct {
	HistoryID string `json:"historyId"`
	QuizID    string `json:"quizId"`
	Total     int    `json:"total"`
}

// HistoryEntry is a completed attempt joined with its quiz metadata, as
// consumed by history listings and the analytics aggregator.
type HistoryEntry struct {
	ID             string     `json:"id"`
	QuizTitle      string     `json:"quizTitle"`
	CategoryID     string     `json:"categoryId"`
	CategoryName   string     `json:"categoryName"`
	SubCategoryID  string     `json:"subcategoryId,omitempty"`
	Difficulty     Difficulty `json:"difficulty"`
	Score          float64    `json:"score"`
	TotalQuestions int        `json:"totalQuestions"`
	CorrectAnswers int        `json:"correctAnswers"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    time.Time  `json:"completedAt"`
}

// HistoryPage is one page of a user's completed attempts, newest first.
type HistoryPage struct {
	Items      []HistoryEntry `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalItems int            `json:"totalItems"`
	TotalPages int            `json:"totalPages"`
}

// CategoryPerformance is a per-category rollup for the dashboard cards.
type CategoryPerformance struct {
	CategoryID string  `json:"categoryId"`
	Name       string  `json:"name"`
	AvgScore   float64 `json:"avgScore"`
	Attempts   int     `json:"attempts"`
	Status     string  `json:"status"` // Strong / Good / Needs Work
}

// Badge is an earned achievement.
type Badge struct {
	Icon        string `json:"icon"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ScorePoint is one sample of the performance-over-time chart.
type ScorePoint struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// DashboardStats is everything the dashboard view needs, recomputed on each
// request from the completed history snapshot.
type DashboardStats struct {
	TotalAttempts      int                   `json:"totalAttempts"`
	AvgScore           float64               `json:"avgScore"`
	BestScore          float64               `json:"bestScore"`
	StreakDays         int                   `json:"streakDays"`
	AccuracyRate       float64               `json:"accuracyRate"`
	AvgTimePerQuestion *float64              `json:"avgTimePerQuestion"` // seconds; nil when not available
	Categories         []CategoryPerformance `json:"categories"`
	Badges             []Badge               `json:"badges"`
	Recent             []HistoryEntry        `json:"recent"`
	Performance        []ScorePoint          `json:"performance"`
	StrongestSubject   string                `json:"strongestSubject"`
	StrongestScore     float64               `json:"strongestScore"`
	WeakestSubject     string                `json:"weakestSubject"`
}

// ProfileStats backs the profile page.
type ProfileStats struct {
	TotalAttempts    int            `json:"totalAttempts"`
	AvgScore         float64        `json:"avgScore"`
	BestScore        float64        `json:"bestScore"`
	AccuracyRate     float64        `json:"accuracyRate"`
	StreakDays       int            `json:"streakDays"`
	StrongestSubject string         `json:"strongestSubject"`
	Badges           []Badge        `json:"badges"`
	Recent           []HistoryEntry `json:"recent"`
}
