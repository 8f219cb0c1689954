package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim is any signed payload that names a subject and expires.
type Claim interface {
	jwt.Claims
	SubjectID() int64
}

// AccessClaim is the stateless bearer credential of a verified account.
type AccessClaim struct {
	UserID  int64 `json:"user_id"`
	IsAdmin bool  `json:"is_user_admin"`
	jwt.RegisteredClaims
}

func NewAccessClaim(userID int64, isAdmin bool, expiresAt time.Time) *AccessClaim {
	return &AccessClaim{
		UserID:           userID,
		IsAdmin:          isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt)},
	}
}

func (c *AccessClaim) SubjectID() int64 { return c.UserID }

// RefreshClaim lives in the server-side session only.
type RefreshClaim struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

func NewRefreshClaim(userID int64, expiresAt time.Time) *RefreshClaim {
	return &RefreshClaim{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt)},
	}
}

func (c *RefreshClaim) SubjectID() int64 { return c.UserID }

// ActionClaim authorizes one state change (email verification, password reset).
// It is stored in the cache and addressed by an opaque key.
type ActionClaim struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

func NewActionClaim(userID int64, expiresAt time.Time) *ActionClaim {
	return &ActionClaim{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt)},
	}
}

func (c *ActionClaim) SubjectID() int64 { return c.UserID }

// TokenCodec signs claims and verifies them back.
type TokenCodec interface {
	Encode(claim Claim) (string, error)
	Decode(token string, into Claim) error
}

// RecoveringCodec additionally identifies the subject of an expired but
// authentic token.
type RecoveringCodec interface {
	TokenCodec
	DecodeExpired(token string, into Claim) (Recovery, error)
}
