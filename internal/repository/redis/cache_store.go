package redis

import (
	"context"
	"errors"
	"time"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/domain/cache"
	goredis "github.com/redis/go-redis/v9"
)

var _ cache.Store = (*CacheStore)(nil)

type CacheStore struct {
	c goredis.UniversalClient
}

func NewCacheStore(c goredis.UniversalClient) *CacheStore { return &CacheStore{c: c} }

func (s *CacheStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.c.Get(ctx, key).Result()
	return v, missOr("cache.get", err)
}

// Set with a non-positive ttl stores the key without expiry.
func (s *CacheStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.c.Set(ctx, key, value, ttl).Err(); err != nil {
		return apperr.Cache("cache.set", err)
	}
	return nil
}

func (s *CacheStore) Del(ctx context.Context, key string) error {
	if err := s.c.Del(ctx, key).Err(); err != nil {
		return apperr.Cache("cache.del", err)
	}
	return nil
}

func (s *CacheStore) GetDel(ctx context.Context, key string) (string, error) {
	v, err := s.c.GetDel(ctx, key).Result()
	return v, missOr("cache.getdel", err)
}

func missOr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, goredis.Nil):
		return cache.ErrMiss
	default:
		return apperr.Cache(op, err)
	}
}
