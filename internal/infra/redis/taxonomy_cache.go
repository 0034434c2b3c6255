package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizgen-service/internal/domain"
)

// TaxonomyLoader fetches the category tree from a backing store.
type TaxonomyLoader interface {
	LoadTaxonomy(ctx context.Context) ([]domain.Category, error)
}

const taxonomyKey = "quiz:taxonomy"

// TaxonomyCache caches the category tree as one JSON value in Redis and falls
// back to the loader on cache miss. The tree is small and read as a unit, so
// a single key beats per-category hashing.
type TaxonomyCache struct {
	client *redis.Client
	loader TaxonomyLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewTaxonomyCache(client *redis.Client, loader TaxonomyLoader, ttl time.Duration) *TaxonomyCache {
	return &TaxonomyCache{
		client: client,
		loader: loader,
		ttl:    ttl,
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
	if tree, ok := c.cached(ctx); ok {
		return tree, nil
	}

	result, err, _ := c.sf.Do(taxonomyKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if tree, ok := c.cached(ctx); ok {
			return tree, nil
		}

		tree, err := c.loader.LoadTaxonomy(ctx)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(tree); err == nil {
			// best-effort: a failed cache write only costs the next reload
			_ = c.client.Set(ctx, taxonomyKey, data, c.ttlWithJitter()).Err()
		}
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Category), nil
}

func (c *TaxonomyCache) cached(ctx context.Context) ([]domain.Category, bool) {
	data, err := c.client.Get(ctx, taxonomyKey).Bytes()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}
	var tree []domain.Category
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, false
	}
	return tree, true
}

func (c *TaxonomyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
