// Package actiontoken stores short-lived action claims in the cache behind
// random keys. Clients only ever see the key.
package actiontoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Warden/internal/auth"
	"github.com/NordCoder/Warden/internal/domain/cache"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Key string

// NewKey returns a random v4 UUID.
func NewKey() Key { return Key(uuid.NewString()) }

func (k Key) String() string { return string(k) }

type Status int

const (
	StatusInvalid Status = iota
	StatusOK
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Outcome of a lookup. SubjectID is zero for StatusInvalid.
type Outcome struct {
	Status    Status
	SubjectID int64
}

type Config struct {
	// Namespace separates key spaces, e.g. "verify" and "reset".
	Namespace string
	// TTL is the claim lifetime, authoritative for expiry.
	TTL time.Duration
	// CacheTTL is the eviction backstop and never shorter than TTL.
	CacheTTL time.Duration
	Now      func() time.Time
}

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "action_token_lookups_total",
	Help: "Action token lookups by namespace and outcome.",
}, []string{"namespace", "status"})

type Gateway struct {
	store cache.Store
	codec auth.RecoveringCodec
	cfg   Config
}

func NewGateway(store cache.Store, codec auth.RecoveringCodec, cfg Config) *Gateway {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.CacheTTL < cfg.TTL {
		cfg.CacheTTL = cfg.TTL
	}
	return &Gateway{store: store, codec: codec, cfg: cfg}
}

// Send stores a fresh claim for subjectID under key, replacing any previous one.
func (g *Gateway) Send(ctx context.Context, key Key, subjectID int64) error {
	tok, err := g.codec.Encode(auth.NewActionClaim(subjectID, g.cfg.Now().Add(g.cfg.TTL)))
	if err != nil {
		return fmt.Errorf("encode action claim: %w", err)
	}
	if err := g.store.Set(ctx, g.cacheKey(key), tok, g.cfg.CacheTTL); err != nil {
		return fmt.Errorf("store action claim: %w", err)
	}
	return nil
}

// Issue mints a new key for subjectID and stores its claim.
func (g *Gateway) Issue(ctx context.Context, subjectID int64) (Key, error) {
	key := NewKey()
	if err := g.Send(ctx, key, subjectID); err != nil {
		return "", err
	}
	return key, nil
}

// Get reads the claim behind key without consuming it. Missing, corrupt or
// forged entries are StatusInvalid; only store failures return an error.
func (g *Gateway) Get(ctx context.Context, key Key) (Outcome, error) {
	if !wellFormed(key) {
		return g.observe(Outcome{}), nil
	}
	raw, err := g.store.Get(ctx, g.cacheKey(key))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return g.observe(Outcome{}), nil
		}
		return Outcome{}, fmt.Errorf("load action claim: %w", err)
	}
	return g.decode(raw)
}

// Take is Get and Invalidate in one atomic store call.
func (g *Gateway) Take(ctx context.Context, key Key) (Outcome, error) {
	if !wellFormed(key) {
		return g.observe(Outcome{}), nil
	}
	raw, err := g.store.GetDel(ctx, g.cacheKey(key))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return g.observe(Outcome{}), nil
		}
		return Outcome{}, fmt.Errorf("take action claim: %w", err)
	}
	return g.decode(raw)
}

// Invalidate removes key. Removing an absent key is not an error.
func (g *Gateway) Invalidate(ctx context.Context, key Key) error {
	if err := g.store.Del(ctx, g.cacheKey(key)); err != nil {
		return fmt.Errorf("invalidate action claim: %w", err)
	}
	return nil
}

func (g *Gateway) decode(raw string) (Outcome, error) {
	var claim auth.ActionClaim
	res, err := g.codec.DecodeExpired(raw, &claim)
	if err != nil {
		return Outcome{}, fmt.Errorf("decode action claim: %w", err)
	}
	switch res {
	case auth.RecoveryValid:
		return g.observe(Outcome{Status: StatusOK, SubjectID: claim.UserID}), nil
	case auth.RecoveryExpired:
		return g.observe(Outcome{Status: StatusExpired, SubjectID: claim.UserID}), nil
	default:
		return g.observe(Outcome{}), nil
	}
}

func (g *Gateway) observe(o Outcome) Outcome {
	lookups.WithLabelValues(g.cfg.Namespace, o.Status.String()).Inc()
	return o
}

func (g *Gateway) cacheKey(key Key) string {
	return "action:" + g.cfg.Namespace + ":" + string(key)
}

func wellFormed(key Key) bool {
	_, err := uuid.Parse(string(key))
	return err == nil
}
