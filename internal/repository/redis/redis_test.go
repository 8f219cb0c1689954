package redis

import (
	"context"
	"testing"
	"time"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/domain/cache"
	"github.com/NordCoder/Warden/internal/domain/user"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Config{Addr: addr, DialTimeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, apperr.KindCache, apperr.KindOf(err))
}

func TestCacheStore(t *testing.T) {
	mr, c := newRedis(t)
	s := NewCacheStore(c)
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	v, err = s.GetDel(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	_, err = s.GetDel(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, s.Set(ctx, "k", "v", time.Second))
	mr.FastForward(2 * time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	require.NoError(t, s.Del(ctx, "k"))
	require.NoError(t, s.Del(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestCacheStore_Failure(t *testing.T) {
	mr, c := newRedis(t)
	s := NewCacheStore(c)
	mr.SetError("ERR backend unavailable")

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, cache.ErrMiss)
	assert.Equal(t, apperr.KindCache, apperr.KindOf(err))
}

func TestSessionStore(t *testing.T) {
	mr, c := newRedis(t)
	store := NewSessionStore(c, time.Hour)
	ctx := context.Background()
	sess := store.Bind("abc")

	_, ok, err := sess.Get(ctx, "refresh_token")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("session:abc"))

	require.NoError(t, sess.Set(ctx, "refresh_token", "tok"))
	assert.Equal(t, time.Hour, mr.TTL("session:abc"))

	mr.FastForward(30 * time.Minute)
	v, ok, err := store.Bind("abc").Get(ctx, "refresh_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)
	assert.Equal(t, time.Hour, mr.TTL("session:abc"))

	_, ok, err = store.Bind("other").Get(ctx, "refresh_token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, sess.Remove(ctx, "refresh_token"))
	_, ok, err = sess.Get(ctx, "refresh_token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, sess.Set(ctx, "x", "y"))
	require.NoError(t, store.Destroy(ctx, "abc"))
	assert.False(t, mr.Exists("session:abc"))
}

func TestSessionStore_Expires(t *testing.T) {
	mr, c := newRedis(t)
	store := NewSessionStore(c, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Bind("s").Set(ctx, "k", "v"))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Bind("s").Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

type countingUsers struct {
	u     user.User
	reads int
	// afterRead runs once, after the row has been copied out.
	afterRead func()
}

func (r *countingUsers) Create(context.Context, *user.User) error { return nil }
func (r *countingUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	r.reads++
	if id != r.u.ID {
		return nil, user.ErrNotFound
	}
	cp := r.u
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return &cp, nil
}
func (r *countingUsers) GetByEmail(context.Context, string) (*user.User, error) {
	return nil, user.ErrNotFound
}
func (r *countingUsers) MarkVerified(_ context.Context, _ int64, at time.Time) error {
	r.u.VerifiedAt = &at
	return nil
}
func (r *countingUsers) UpdatePassword(_ context.Context, _ int64, hash string) error {
	r.u.Password = hash
	return nil
}

func TestCachedUsers(t *testing.T) {
	mr, c := newRedis(t)
	inner := &countingUsers{u: user.User{ID: 9, Email: "a@b.com", Password: "h1", CreatedAt: time.Unix(100, 0).UTC()}}
	users := NewCachedUsers(inner, NewCacheStore(c), time.Hour, nil)
	ctx := context.Background()

	u, err := users.GetByID(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "h1", u.Password)
	assert.Equal(t, time.Hour, mr.TTL("user:9"))

	u, err = users.GetByID(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.reads)
	assert.Equal(t, "h1", u.Password)
	assert.True(t, inner.u.CreatedAt.Equal(u.CreatedAt))

	at := time.Unix(200, 0).UTC()
	require.NoError(t, users.MarkVerified(ctx, 9, at))
	assert.False(t, mr.Exists("user:9"))
	u, err = users.GetByID(ctx, 9)
	require.NoError(t, err)
	assert.True(t, u.Verified())
	assert.Equal(t, 2, inner.reads)

	require.NoError(t, users.UpdatePassword(ctx, 9, "h2"))
	u, err = users.GetByID(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "h2", u.Password)

	_, err = users.GetByID(ctx, 10)
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.False(t, mr.Exists("user:10"))
}

func TestCachedUsers_RefillRacedByEviction(t *testing.T) {
	mr, c := newRedis(t)
	inner := &countingUsers{u: user.User{ID: 9, Email: "a@b.com", Password: "h1"}}
	users := NewCachedUsers(inner, NewCacheStore(c), time.Hour, nil)
	ctx := context.Background()

	inner.afterRead = func() {
		require.NoError(t, users.MarkVerified(ctx, 9, time.Unix(200, 0).UTC()))
	}
	u, err := users.GetByID(ctx, 9)
	require.NoError(t, err)
	assert.False(t, u.Verified())
	assert.False(t, mr.Exists("user:9"))

	u, err = users.GetByID(ctx, 9)
	require.NoError(t, err)
	assert.True(t, u.Verified())
	assert.Equal(t, 2, inner.reads)
	assert.True(t, mr.Exists("user:9"))
}

func TestCachedUsers_CorruptEntry(t *testing.T) {
	mr, c := newRedis(t)
	inner := &countingUsers{u: user.User{ID: 1, Email: "a@b.com"}}
	users := NewCachedUsers(inner, NewCacheStore(c), time.Hour, nil)
	require.NoError(t, mr.Set("user:1", "{not json"))

	u, err := users.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
	assert.Equal(t, 1, inner.reads)
}
