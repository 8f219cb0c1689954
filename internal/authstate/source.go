package authstate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NordCoder/Warden/internal/auth"
	"github.com/NordCoder/Warden/internal/domain/user"
)

// Source is one credential carrier. It reports handled=false when the request
// carries nothing it can use, letting the next source try.
type Source interface {
	Resolve(ctx context.Context, req Request) (st State, handled bool, err error)
}

// BearerSource accepts a valid access token from the Authorization header.
type BearerSource struct {
	Codec auth.TokenCodec
}

func (s BearerSource) Resolve(_ context.Context, req Request) (State, bool, error) {
	raw := Bearer(req.Authorization)
	if raw == "" {
		return State{}, false, nil
	}
	var claim auth.AccessClaim
	if err := s.Codec.Decode(raw, &claim); err != nil {
		return State{}, false, nil
	}
	return Connected(&claim), true, nil
}

// Bearer extracts the token of an "Authorization: Bearer <token>" header. The
// scheme is matched case-insensitively.
func Bearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// SessionSource re-derives an access claim from the refresh claim kept in the
// session, consulting the user store for the current verification status.
type SessionSource struct {
	Codec  auth.TokenCodec
	Users  UserLookup
	Issuer auth.Issuer
}

func (s SessionSource) Resolve(ctx context.Context, req Request) (State, bool, error) {
	if req.Session == nil {
		return State{}, false, nil
	}
	raw, ok, err := req.Session.Get(ctx, RefreshTokenKey)
	if err != nil {
		return State{}, false, fmt.Errorf("read session: %w", err)
	}
	if !ok || raw == "" {
		return State{}, false, nil
	}

	var claim auth.RefreshClaim
	if err := s.Codec.Decode(raw, &claim); err != nil {
		return Guest(), true, nil
	}

	u, err := s.Users.GetByID(ctx, claim.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Guest(), true, nil
		}
		return State{}, false, fmt.Errorf("load session user: %w", err)
	}
	if !u.Verified() {
		return NotVerified(u.ID), true, nil
	}
	return Connected(s.Issuer.Access(u.ID, u.IsAdmin)), true, nil
}
