package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quizgen-service/internal/app"
	"quizgen-service/internal/domain"
)

// Store implements app.AttemptStore and app.UserStore on Postgres via bun.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// CreateAttempt writes the quiz and its pending history row in one
// transaction, so a failure leaves no orphaned rows.
func (s *Store) CreateAttempt(ctx context.Context, quiz domain.Quiz, history domain.QuizHistory) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := quizRow{
			ID:            quiz.ID,
			Title:         quiz.Title,
			Description:   quiz.Description,
			Difficulty:    string(quiz.Difficulty),
			CategoryID:    quiz.CategoryID,
			SubCategoryID: quiz.SubCategoryID,
			CreatedAt:     quiz.CreatedAt,
		}
		if _, err := tx.NewInsert().Model(&q).Exec(ctx); err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		h := quizHistoryRow{
			ID:             history.ID,
			UserID:         history.UserID,
			QuizID:         history.QuizID,
			TotalQuestions: history.TotalQuestions,
			StartedAt:      history.StartedAt,
		}
		if _, err := tx.NewInsert().Model(&h).Exec(ctx); err != nil {
			return fmt.Errorf("insert quiz history: %w", err)
		}
		return nil
	})
}

func (s *Store) GetHistory(ctx context.Context, historyID string) (domain.QuizHistory, error) {
	var row quizHistoryRow
	err := s.db.NewSelect().Model(&row).Where("h.id = ?", historyID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizHistory{}, domain.ErrHistoryNotFound
	}
	if err != nil {
		return domain.QuizHistory{}, fmt.Errorf("load quiz history: %w", err)
	}
	return domain.QuizHistory{
		ID:             row.ID,
		UserID:         row.UserID,
		QuizID:         row.QuizID,
		Score:          row.Score,
		TotalQuestions: row.TotalQuestions,
		CorrectAnswers: row.CorrectAnswers,
		StartedAt:      row.StartedAt,
		CompletedAt:    row.CompletedAt,
	}, nil
}

// FinalizeHistory performs the single completion transition. The guard on
// completed_at IS NULL makes the finalize atomic with the read: a row that
// was already completed matches nothing.
func (s *Store) FinalizeHistory(ctx context.Context, historyID string, correct int, score float64, completedAt time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*quizHistoryRow)(nil)).
		Set("correct_answers = ?", correct).
		Set("score = ?", score).
		Set("completed_at = ?", completedAt).
		Where("id = ?", historyID).
		Where("completed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("finalize quiz history: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize quiz history: %w", err)
	}
	if rows == 0 {
		if _, err := s.GetHistory(ctx, historyID); err != nil {
			return err
		}
		return domain.ErrAttemptCompleted
	}
	return nil
}

const historyColumns = `h.id, q.title AS quiz_title, q.category_id, c.name AS category_name,
q.subcategory_id, q.difficulty, h.score, h.total_questions, h.correct_answers, h.started_at, h.completed_at`

func (s *Store) ListCompleted(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	rows, err := s.completedQuery(userID, app.HistoryFilter{}).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list completed attempts: %w", err)
	}
	return toEntries(rows), nil
}

func (s *Store) ListHistoryPage(ctx context.Context, userID string, page, pageSize int, filter app.HistoryFilter) (domain.HistoryPage, error) {
	q := s.completedQuery(userID, filter)

	total, err := q.query.Count(ctx)
	if err != nil {
		return domain.HistoryPage{}, fmt.Errorf("count attempts: %w", err)
	}
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	rows, err := q.page(page, pageSize).Scan(ctx)
	if err != nil {
		return domain.HistoryPage{}, fmt.Errorf("list attempts page: %w", err)
	}
	return domain.HistoryPage{
		Items:      toEntries(rows),
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

type completedQuery struct {
	query *bun.SelectQuery
}

func (s *Store) completedQuery(userID string, filter app.HistoryFilter) completedQuery {
	q := s.db.NewSelect().
		TableExpr("quiz_histories AS h").
		ColumnExpr(historyColumns).
		Join("JOIN quizzes AS q ON q.id = h.quiz_id").
		Join("JOIN categories AS c ON c.id = q.category_id").
		Where("h.user_id = ?", userID).
		Where("h.completed_at IS NOT NULL").
		OrderExpr("h.completed_at DESC")
	if filter.CategoryID != "" {
		q = q.Where("q.category_id = ?", filter.CategoryID)
	}
	if filter.SubCategoryID != "" {
		q = q.Where("q.subcategory_id = ?", filter.SubCategoryID)
	}
	return completedQuery{query: q}
}

func (q completedQuery) Scan(ctx context.Context) ([]historyEntryRow, error) {
	var rows []historyEntryRow
	if err := q.query.Scan(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (q completedQuery) page(page, pageSize int) completedQuery {
	q.query = q.query.Limit(pageSize).Offset((page - 1) * pageSize)
	return q
}

func toEntries(rows []historyEntryRow) []domain.HistoryEntry {
	entries := make([]domain.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toDomain())
	}
	return entries
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	exists, err := s.db.NewSelect().
		Model((*userRow)(nil)).
		Where("email = ?", user.Email).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.ErrEmailTaken
	}
	row := userRow{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		IsActive:     user.IsActive,
		IsAdmin:      user.IsAdmin,
		CreatedAt:    user.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) CreateProfile(ctx context.Context, profile domain.Profile) error {
	row := profileRow{
		ID:        profile.ID,
		UserID:    profile.UserID,
		FullName:  profile.FullName,
		Bio:       profile.Bio,
		AvatarURL: profile.AvatarURL,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return domain.User{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
		IsAdmin:      row.IsAdmin,
		CreatedAt:    row.CreatedAt,
	}, nil
}

// InsertTaxonomy seeds categories and subcategories, skipping rows that
// already exist. Used by the seed command and integration tests.
func (s *Store) InsertTaxonomy(ctx context.Context, categories []domain.Category) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, cat := range categories {
			row := categoryRow{ID: cat.ID, Name: cat.Name, Description: cat.Description}
			if _, err := tx.NewInsert().Model(&row).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("insert category %s: %w", cat.Name, err)
			}
			for _, sub := range cat.SubCategories {
				subRow := subCategoryRow{ID: sub.ID, Name: sub.Name, CategoryID: cat.ID}
				if _, err := tx.NewInsert().Model(&subRow).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
					return fmt.Errorf("insert subcategory %s: %w", sub.Name, err)
				}
			}
		}
		return nil
	})
}
