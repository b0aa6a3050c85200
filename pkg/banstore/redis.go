package banstore

import (
	"context"
	"fmt"

	"zerotwo/pkg/cache"
)

// RedisPersistence keeps the set in a redis SET at <prefix>:banned_users.
type RedisPersistence struct {
	cache *cache.Cache
}

func NewRedisPersistence(c *cache.Cache) *RedisPersistence {
	return &RedisPersistence{cache: c}
}

func (r *RedisPersistence) key() string {
	return r.cache.Key("banned_users")
}

func (r *RedisPersistence) Load(ctx context.Context) ([]string, error) {
	ids, err := r.cache.SMembers(ctx, r.key())
	if err != nil {
		return nil, fmt.Errorf("failed to load ban set: %w", err)
	}
	return ids, nil
}

func (r *RedisPersistence) Save(ctx context.Context, ids []string) error {
	return r.cache.ReplaceSet(ctx, r.key(), ids)
}
