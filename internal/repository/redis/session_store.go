package redis

import (
	"context"
	"errors"
	"time"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/domain/session"
	goredis "github.com/redis/go-redis/v9"
)

// SessionStore keeps one hash per session id. Every access slides the expiry.
type SessionStore struct {
	c   goredis.UniversalClient
	ttl time.Duration
}

func NewSessionStore(c goredis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{c: c, ttl: ttl}
}

// Bind returns the session stored under sid. Nothing is written until Set.
func (s *SessionStore) Bind(sid string) session.Session {
	return &boundSession{store: s, key: "session:" + sid}
}

// Destroy drops the whole session.
func (s *SessionStore) Destroy(ctx context.Context, sid string) error {
	if err := s.c.Del(ctx, "session:"+sid).Err(); err != nil {
		return apperr.Cache("session.destroy", err)
	}
	return nil
}

type boundSession struct {
	store *SessionStore
	key   string
}

func (b *boundSession) Get(ctx context.Context, field string) (string, bool, error) {
	v, err := b.store.c.HGet(ctx, b.key, field).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Cache("session.get", err)
	}
	if err := b.store.c.Expire(ctx, b.key, b.store.ttl).Err(); err != nil {
		return "", false, apperr.Cache("session.touch", err)
	}
	return v, true, nil
}

func (b *boundSession) Set(ctx context.Context, field, value string) error {
	_, err := b.store.c.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, b.key, field, value)
		p.Expire(ctx, b.key, b.store.ttl)
		return nil
	})
	if err != nil {
		return apperr.Cache("session.set", err)
	}
	return nil
}

func (b *boundSession) Remove(ctx context.Context, field string) error {
	if err := b.store.c.HDel(ctx, b.key, field).Err(); err != nil {
		return apperr.Cache("session.remove", err)
	}
	return nil
}
