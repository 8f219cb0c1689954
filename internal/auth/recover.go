package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type Recovery int

const (
	RecoveryInvalid Recovery = iota
	RecoveryValid
	RecoveryExpired
)

func (r Recovery) String() string {
	switch r {
	case RecoveryValid:
		return "valid"
	case RecoveryExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Recovering wraps a Codec with DecodeExpired.
type Recovering struct {
	*Codec
}

var _ RecoveringCodec = (*Recovering)(nil)

func NewRecovering(c *Codec) *Recovering { return &Recovering{Codec: c} }

// DecodeExpired behaves like Decode, except that a token whose only defect is
// its expiry is verified a second time with claim validation off. On success
// into holds the stale claim and RecoveryExpired is returned; callers may only
// trust its subject id.
func (r *Recovering) DecodeExpired(token string, into Claim) (Recovery, error) {
	err := r.Decode(token, into)
	switch {
	case err == nil:
		return RecoveryValid, nil
	case errors.Is(err, ErrInvalid):
		return RecoveryInvalid, nil
	case !errors.Is(err, ErrExpired):
		return RecoveryInvalid, err
	}

	if err := r.parse(token, into, jwt.WithoutClaimsValidation()); err != nil {
		return RecoveryInvalid, nil
	}
	return RecoveryExpired, nil
}
