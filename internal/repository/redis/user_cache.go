package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/NordCoder/Warden/internal/domain/cache"
	"github.com/NordCoder/Warden/internal/domain/user"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ user.Repo = (*CachedUsers)(nil)

// CachedUsers reads users by id through the cache. Writes go to the inner
// repo, bump the user's version key and evict the cached copy. A refill whose
// read overlapped an eviction is dropped again.
type CachedUsers struct {
	inner user.Repo
	store cache.Store
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedUsers(inner user.Repo, store cache.Store, ttl time.Duration, log *zap.Logger) *CachedUsers {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedUsers{inner: inner, store: store, ttl: ttl, log: log.With(zap.String("component", "user.cache"))}
}

// cachedUser carries the password hash too, which user.User hides from JSON.
type cachedUser struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Password    string     `json:"password_hash"`
	PhoneNumber *string    `json:"phone_number,omitempty"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	IsAdmin     bool       `json:"is_admin"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (c *CachedUsers) Create(ctx context.Context, u *user.User) error {
	return c.inner.Create(ctx, u)
}

func (c *CachedUsers) GetByID(ctx context.Context, id int64) (*user.User, error) {
	raw, err := c.store.Get(ctx, userKey(id))
	if err == nil {
		var cu cachedUser
		if jerr := json.Unmarshal([]byte(raw), &cu); jerr == nil {
			return cu.user(), nil
		}
		c.log.Warn("drop corrupt cache entry", zap.Int64("user_id", id))
	} else if !errors.Is(err, cache.ErrMiss) {
		c.log.Warn("cache read failed", zap.Int64("user_id", id), zap.Error(err))
	}

	ver := c.version(ctx, id)
	u, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, u, ver)
	return u, nil
}

func (c *CachedUsers) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return c.inner.GetByEmail(ctx, email)
}

func (c *CachedUsers) MarkVerified(ctx context.Context, id int64, at time.Time) error {
	if err := c.inner.MarkVerified(ctx, id, at); err != nil {
		return err
	}
	return c.evict(ctx, id)
}

func (c *CachedUsers) UpdatePassword(ctx context.Context, id int64, hash string) error {
	if err := c.inner.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	return c.evict(ctx, id)
}

// fill caches u unless the version moved away from ver while it was read.
func (c *CachedUsers) fill(ctx context.Context, u *user.User, ver string) {
	b, err := json.Marshal(fromUser(u))
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, userKey(u.ID), string(b), c.ttl); err != nil {
		c.log.Warn("cache fill failed", zap.Int64("user_id", u.ID), zap.Error(err))
		return
	}
	if c.version(ctx, u.ID) == ver {
		return
	}
	c.log.Debug("drop refill raced by eviction", zap.Int64("user_id", u.ID))
	if err := c.store.Del(ctx, userKey(u.ID)); err != nil {
		c.log.Warn("cache drop failed", zap.Int64("user_id", u.ID), zap.Error(err))
	}
}

// version is empty when the key is absent or unreadable.
func (c *CachedUsers) version(ctx context.Context, id int64) string {
	v, err := c.store.Get(ctx, versionKey(id))
	if err != nil {
		return ""
	}
	return v
}

// evict must succeed, or readers would see a stale verified flag or hash.
func (c *CachedUsers) evict(ctx context.Context, id int64) error {
	if err := c.store.Set(ctx, versionKey(id), uuid.NewString(), c.ttl); err != nil {
		return err
	}
	return c.store.Del(ctx, userKey(id))
}

func userKey(id int64) string    { return "user:" + strconv.FormatInt(id, 10) }
func versionKey(id int64) string { return "user:" + strconv.FormatInt(id, 10) + ":ver" }

func fromUser(u *user.User) cachedUser {
	return cachedUser{
		ID: u.ID, Email: u.Email, Password: u.Password, PhoneNumber: u.PhoneNumber,
		VerifiedAt: u.VerifiedAt, IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (cu cachedUser) user() *user.User {
	return &user.User{
		ID: cu.ID, Email: cu.Email, Password: cu.Password, PhoneNumber: cu.PhoneNumber,
		VerifiedAt: cu.VerifiedAt, IsAdmin: cu.IsAdmin, CreatedAt: cu.CreatedAt, UpdatedAt: cu.UpdatedAt,
	}
}
