package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizgen-service/internal/domain"
)

// TaxonomyLoader fetches the category tree from a backing store.
type TaxonomyLoader interface {
	LoadTaxonomy(ctx context.Context) ([]domain.Category, error)
}

// TaxonomyCache caches the category tree with TTL to avoid re-reading the
// taxonomy on every quiz start and picker render.
type TaxonomyCache struct {
	loader TaxonomyLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	tree      []domain.Category
	expiresAt time.Time
}

func NewTaxonomyCache(loader TaxonomyLoader, ttl time.Duration) *TaxonomyCache {
	return &TaxonomyCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *TaxonomyCache) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return c.snapshot(ctx)
}

func (c *TaxonomyCache) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	tree, err := c.snapshot(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	for _, cat := range tree {
		if cat.ID == id {
			return cat, nil
		}
	}
	return domain.Category{}, domain.ErrCategoryNotFound
}

func (c *TaxonomyCache) GetSubCategory(ctx context.Context, id string) (domain.SubCategory, error) {
	tree, err := c.snapshot(ctx)
	if err != nil {
		return domain.SubCategory{}, err
	}
	for _, cat := range tree {
		for _, sub := range cat.SubCategories {
			if sub.ID == id {
				return sub, nil
			}
		}
	}
	return domain.SubCategory{}, domain.ErrSubCategoryNotFound
}

func (c *TaxonomyCache) snapshot(ctx context.Context) ([]domain.Category, error) {
	now := c.clock()

	c.mu.RLock()
	if c.tree != nil && c.expiresAt.After(now) {
		tree := c.tree
		c.mu.RUnlock()
		return tree, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("taxonomy", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.tree != nil && c.expiresAt.After(now) {
			tree := c.tree
			c.mu.RUnlock()
			return tree, nil
		}
		c.mu.RUnlock()

		tree, err := c.loader.LoadTaxonomy(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.tree = tree
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Category), nil
}

func (c *TaxonomyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticTaxonomyLoader serves a fixed category tree (useful for tests/demos).
type StaticTaxonomyLoader struct {
	categories []domain.Category
}

func NewStaticTaxonomyLoader(categories []domain.Category) *StaticTaxonomyLoader {
	return &StaticTaxonomyLoader{categories: categories}
}

func (l *StaticTaxonomyLoader) LoadTaxonomy(_ context.Context) ([]domain.Category, error) {
	return l.categories, nil
}
