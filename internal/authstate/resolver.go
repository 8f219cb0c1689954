package authstate

import (
	"context"

	"github.com/NordCoder/Warden/internal/auth"
)

// Resolver asks its sources in order; the first one that handles the request
// decides the state.
type Resolver struct {
	sources []Source
}

func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// NewDefault tries the bearer header first, then the session.
func NewDefault(codec auth.TokenCodec, users UserLookup, issuer auth.Issuer) *Resolver {
	return NewResolver(
		BearerSource{Codec: codec},
		SessionSource{Codec: codec, Users: users, Issuer: issuer},
	)
}

func (r *Resolver) Resolve(ctx context.Context, req Request) (State, error) {
	for _, src := range r.sources {
		st, handled, err := src.Resolve(ctx, req)
		if err != nil {
			return State{}, err
		}
		if handled {
			return st, nil
		}
	}
	return Guest(), nil
}
