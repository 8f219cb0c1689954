package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpired     = errors.New("token expired")
	ErrInvalid     = errors.New("token invalid")
	ErrEmptySecret = errors.New("signing secret is empty")
)

type Option func(*Codec)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// Codec is an HS256 signer. It holds no mutable state and is safe for
// concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
}

var _ TokenCodec = (*Codec)(nil)

func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	c := &Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Codec) Now() time.Time { return c.now() }

func (c *Codec) Encode(claim Claim) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claim).SignedString(c.secret)
	if err != nil {
		return "", apperr.Internal("auth.encode", err)
	}
	return s, nil
}

// Decode verifies token and fills into. It fails with ErrExpired when only
// the expiry is wrong and with ErrInvalid for everything else.
func (c *Codec) Decode(token string, into Claim) error {
	err := c.parse(token, into, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
}

func (c *Codec) parse(token string, into Claim, opts ...jwt.ParserOption) error {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := jwt.ParseWithClaims(token, into, c.keyFunc, opts...)
	return err
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return c.secret, nil
}
