package postgres

import (
	"database/sql"
	"time"

	"github.com/uptrace/bun"

	"quizgen-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	Email        string    `bun:"email"`
	PasswordHash string    `bun:"password_hash"`
	IsActive     bool      `bun:"is_active"`
	IsAdmin      bool      `bun:"is_admin"`
	CreatedAt    time.Time `bun:"created_at"`
}

type profileRow struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	ID        string `bun:"id,pk"`
	UserID    string `bun:"user_id"`
	FullName  string `bun:"full_name"`
	Bio       string `bun:"bio"`
	AvatarURL string `bun:"avatar_url"`
}

type categoryRow struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID          string `bun:"id,pk"`
	Name        string `bun:"name"`
	Description string `bun:"description"`
}

type subCategoryRow struct {
	bun.BaseModel `bun:"table:subcategories,alias:sc"`

	ID         string `bun:"id,pk"`
	Name       string `bun:"name"`
	CategoryID string `bun:"category_id"`
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID            string    `bun:"id,pk"`
	Title         string    `bun:"title"`
	Description   string    `bun:"description"`
	Difficulty    string    `bun:"difficulty"`
	CategoryID    string    `bun:"category_id"`
	SubCategoryID string    `bun:"subcategory_id,nullzero"`
	CreatedAt     time.Time `bun:"created_at"`
}

type quizHistoryRow struct {
	bun.BaseModel `bun:"table:quiz_histories,alias:h"`

	ID             string     `bun:"id,pk"`
	UserID         string     `bun:"user_id"`
	QuizID         string     `bun:"quiz_id"`
	Score          float64    `bun:"score"`
	TotalQuestions int        `bun:"total_questions"`
	CorrectAnswers int        `bun:"correct_answers"`
	StartedAt      time.Time  `bun:"started_at"`
	CompletedAt    *time.Time `bun:"completed_at,nullzero"`
}

// historyEntryRow is the join of a completed history with its quiz metadata.
type historyEntryRow struct {
	ID             string         `bun:"id"`
	QuizTitle      string         `bun:"quiz_title"`
	CategoryID     string         `bun:"category_id"`
	CategoryName   string         `bun:"category_name"`
	SubCategoryID  sql.NullString `bun:"subcategory_id"`
	Difficulty     string         `bun:"difficulty"`
	Score          float64        `bun:"score"`
	TotalQuestions int            `bun:"total_questions"`
	CorrectAnswers int            `bun:"correct_answers"`
	StartedAt      time.Time      `bun:"started_at"`
	CompletedAt    time.Time      `bun:"completed_at"`
}

func (r historyEntryRow) toDomain() domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:             r.ID,
		QuizTitle:      r.QuizTitle,
		CategoryID:     r.CategoryID,
		CategoryName:   r.CategoryName,
		SubCategoryID:  r.SubCategoryID.String,
		Difficulty:     domain.Difficulty(r.Difficulty),
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
}
