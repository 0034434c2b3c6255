package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizgen-service/internal/domain"
)

// TaxonomyLoader reads the category tree from Postgres. It sits behind the
// Redis or in-memory taxonomy cache on the hot path.
type TaxonomyLoader struct {
	pool *pgxpool.Pool
}

func NewTaxonomyLoader(pool *pgxpool.Pool) *TaxonomyLoader {
	return &TaxonomyLoader{pool: pool}
}

func (l *TaxonomyLoader) LoadTaxonomy(ctx context.Context) ([]domain.Category, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	index := make(map[string]int)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		index[c.ID] = len(categories)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	subRows, err := l.pool.Query(ctx, `SELECT id, name, category_id FROM subcategories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load subcategories: %w", err)
	}
	defer subRows.Close()

	for subRows.Next() {
		var s domain.SubCategory
		if err := subRows.Scan(&s.ID, &s.Name, &s.CategoryID); err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		if i, ok := index[s.CategoryID]; ok {
			categories[i].SubCategories = append(categories[i].SubCategories, s)
		}
	}
	if err := subRows.Err(); err != nil {
		return nil, fmt.Errorf("load subcategories: %w", err)
	}
	return categories, nil
}
