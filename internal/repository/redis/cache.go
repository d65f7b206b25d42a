package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirinyoku/lessonbook/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func getJSON[T any](ctx context.Context, rdb *redis.Client, key string) (T, bool, error) {
	var zero T

	s, err := rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	var out T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return zero, false, err
	}

	return out, true, nil
}

func setJSON(ctx context.Context, rdb *redis.Client, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return rdb.Set(ctx, key, string(b), ttl).Err()
}

// GetOrSetJSON returns the cached value under key, or calls loader, caches its
// result for ttl and returns it. Concurrent misses on one key share a single
// loader call. A failed cache write does not fail the call.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok, err := getJSON[T](ctx, c.rdb, key); err != nil || ok {
		return v, err
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		if v, ok, err := getJSON[T](ctx, c.rdb, key); err != nil || ok {
			return v, err
		}
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		_ = setJSON(ctx, c.rdb, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache %s: unexpected %T", key, vAny)
	}

	return v, nil
}

// CatalogGeneration returns the current catalog generation, 0 when unset.
func (c *Cache) CatalogGeneration(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, KeyCatalogGeneration()).Int64()
	if err == redis.Nil {
		return 0, nil
	}

	return gen, err
}

// InvalidateCatalog bumps the catalog generation, which orphans every cached
// search result at once. Orphaned keys expire on their own TTL.
func (c *Cache) InvalidateCatalog(ctx context.Context) error {
	return c.rdb.Incr(ctx, KeyCatalogGeneration()).Err()
}

// SearchLessons serves a subject search from the cache of the current catalog
// generation, falling back to load on a miss.
func (c *Cache) SearchLessons(
	ctx context.Context,
	query string,
	ttl time.Duration,
	load func(ctx context.Context) ([]domain.Lesson, error),
) ([]domain.Lesson, error) {
	gen, err := c.CatalogGeneration(ctx)
	if err != nil {
		return nil, err
	}

	return GetOrSetJSON(ctx, c, KeyLessonSearch(gen, query), ttl, load)
}
