package session

import (
	"context"
	"errors"
	"fmt"

	"zerotwo/pkg/cache"
)

// RedisStore keeps sessions as JSON under <prefix>:session:<id>. Keys never
// expire, warnings included.
type RedisStore struct {
	cache *cache.Cache
}

func NewRedisStore(c *cache.Cache) *RedisStore {
	return &RedisStore{cache: c}
}

func (r *RedisStore) Get(ctx context.Context, userID string) (*Session, error) {
	var s Session
	err := r.cache.GetJSON(ctx, r.cache.Key("session", userID), &s)
	if errors.Is(err, cache.ErrMiss) {
		return New(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", userID, err)
	}
	s.UserID = userID
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	if err := r.cache.SetJSON(ctx, r.cache.Key("session", s.UserID), s, 0); err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.UserID, err)
	}
	return nil
}
