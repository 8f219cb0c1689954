package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestCodec(t *testing.T, secret string) *Codec {
	t.Helper()
	c, err := NewCodec([]byte(secret), WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return c
}

func TestNewCodec_EmptySecret(t *testing.T) {
	_, err := NewCodec(nil)
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestCodec_RoundTrip(t *testing.T) {
	c := newTestCodec(t, "round-trip")
	exp := testNow.Add(time.Hour)

	t.Run("access", func(t *testing.T) {
		tok, err := c.Encode(NewAccessClaim(42, true, exp))
		require.NoError(t, err)

		var got AccessClaim
		require.NoError(t, c.Decode(tok, &got))
		assert.Equal(t, int64(42), got.SubjectID())
		assert.True(t, got.IsAdmin)
		assert.Equal(t, exp.Unix(), got.ExpiresAt.Unix())
	})

	t.Run("refresh", func(t *testing.T) {
		tok, err := c.Encode(NewRefreshClaim(7, testNow.Add(7*24*time.Hour)))
		require.NoError(t, err)

		var got RefreshClaim
		require.NoError(t, c.Decode(tok, &got))
		assert.Equal(t, int64(7), got.UserID)
	})

	t.Run("action", func(t *testing.T) {
		tok, err := c.Encode(NewActionClaim(9, testNow.Add(15*time.Minute)))
		require.NoError(t, err)

		var got ActionClaim
		require.NoError(t, c.Decode(tok, &got))
		assert.Equal(t, int64(9), got.UserID)
	})
}

func TestCodec_Deterministic(t *testing.T) {
	c := newTestCodec(t, "same")
	claim := NewAccessClaim(1, false, testNow.Add(time.Hour))

	a, err := c.Encode(claim)
	require.NoError(t, err)
	b, err := c.Encode(claim)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCodec_Expired(t *testing.T) {
	c := newTestCodec(t, "exp")
	tok, err := c.Encode(NewAccessClaim(1, false, testNow.Add(-time.Second)))
	require.NoError(t, err)

	err = c.Decode(tok, &AccessClaim{})
	require.ErrorIs(t, err, ErrExpired)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestCodec_Invalid(t *testing.T) {
	c := newTestCodec(t, "right")
	other := newTestCodec(t, "wrong")

	tok, err := other.Encode(NewAccessClaim(1, false, testNow.Add(time.Hour)))
	require.NoError(t, err)

	cases := map[string]string{
		"wrong secret": tok,
		"garbage":      "not.a.jwt",
		"empty":        "",
		"tampered":     tamper(t, c, NewAccessClaim(1, false, testNow.Add(time.Hour))),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, c.Decode(raw, &AccessClaim{}), ErrInvalid)
		})
	}
}

func TestCodec_MissingExpiryIsInvalid(t *testing.T) {
	c := newTestCodec(t, "noexp")
	tok, err := c.Encode(&AccessClaim{UserID: 3})
	require.NoError(t, err)

	require.ErrorIs(t, c.Decode(tok, &AccessClaim{}), ErrInvalid)
}

func TestCodec_RejectsNoneAlgorithm(t *testing.T) {
	c := newTestCodec(t, "alg")
	// {"alg":"none","typ":"JWT"}.{"user_id":1,"exp":4102444800}.
	raw := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJ1c2VyX2lkIjoxLCJleHAiOjQxMDI0NDQ4MDB9."
	require.ErrorIs(t, c.Decode(raw, &AccessClaim{}), ErrInvalid)
}

// tamper re-signs nothing: it swaps the payload of a valid token so the
// signature no longer matches.
func tamper(t *testing.T, c *Codec, claim Claim) string {
	t.Helper()
	tok, err := c.Encode(claim)
	require.NoError(t, err)
	forged, err := c.Encode(NewAccessClaim(999, true, testNow.Add(time.Hour)))
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	forgedParts := strings.Split(forged, ".")
	return parts[0] + "." + forgedParts[1] + "." + parts[2]
}
