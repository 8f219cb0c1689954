package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/NordCoder/Warden/internal/domain/session"
	"github.com/google/uuid"
)

// SessionStore hands out the server-side session stored under a session id.
type SessionStore interface {
	Bind(sid string) session.Session
	Destroy(ctx context.Context, sid string) error
}

type CookieConfig struct {
	Name   string        `mapstructure:"cookie_name"`
	Path   string        `mapstructure:"cookie_path"`
	Domain string        `mapstructure:"cookie_domain"`
	Secure bool          `mapstructure:"cookie_secure"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// cookieSession binds a request to its session. A client-supplied id is only
// ever read from; the first write of a request starts a fresh server-minted
// id, drops the old session and sets a new cookie.
type cookieSession struct {
	store  SessionStore
	cfg    CookieConfig
	w      http.ResponseWriter
	sid    string
	minted bool
	bound  session.Session
}

var _ session.Session = (*cookieSession)(nil)

func newCookieSession(w http.ResponseWriter, r *http.Request, store SessionStore, cfg CookieConfig) *cookieSession {
	cs := &cookieSession{store: store, cfg: cfg, w: w}
	if c, err := r.Cookie(cfg.Name); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			cs.sid = c.Value
		}
	}
	return cs
}

func (c *cookieSession) Get(ctx context.Context, key string) (string, bool, error) {
	if c.sid == "" {
		return "", false, nil
	}
	return c.session().Get(ctx, key)
}

func (c *cookieSession) Set(ctx context.Context, key, value string) error {
	if !c.minted {
		if err := c.rotate(ctx); err != nil {
			return err
		}
	}
	return c.session().Set(ctx, key, value)
}

func (c *cookieSession) rotate(ctx context.Context) error {
	if c.sid != "" {
		if err := c.store.Destroy(ctx, c.sid); err != nil {
			return err
		}
	}
	c.sid = uuid.NewString()
	c.minted = true
	c.bound = nil
	c.setCookie()
	return nil
}

// destroy drops the server-side session and expires the cookie.
func (c *cookieSession) destroy(ctx context.Context) error {
	if c.sid == "" {
		return nil
	}
	if err := c.store.Destroy(ctx, c.sid); err != nil {
		return err
	}
	c.clearCookie()
	return nil
}

func (c *cookieSession) Remove(ctx context.Context, key string) error {
	if c.sid == "" {
		return nil
	}
	return c.session().Remove(ctx, key)
}

func (c *cookieSession) session() session.Session {
	if c.bound == nil {
		c.bound = c.store.Bind(c.sid)
	}
	return c.bound
}

func (c *cookieSession) setCookie() {
	http.SetCookie(c.w, &http.Cookie{
		Name:     c.cfg.Name,
		Value:    c.sid,
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.cfg.TTL.Seconds()),
		Expires:  time.Now().Add(c.cfg.TTL).UTC(),
	})
}

func (c *cookieSession) clearCookie() {
	if c.sid == "" {
		return
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     c.cfg.Name,
		Value:    "",
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
	c.sid = ""
	c.bound = nil
}
