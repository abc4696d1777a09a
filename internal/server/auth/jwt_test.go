package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec([]byte("super-secret"), 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	return c
}

func TestEncodeDecode_Success(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	now := time.Unix(1_700_000_000, 0)

	tok, issued, err := c.Encode("user-123", TokenTypeAccess, now)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	got, err := c.Decode(tok, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "user-123", got.UserID)
	assert.Equal(t, TokenTypeAccess, got.Type)
	assert.Equal(t, now.Unix(), got.IssuedAt.Unix())
	assert.Equal(t, now.Add(15*time.Minute).Unix(), got.ExpiresAt.Unix())
	assert.Equal(t, issued.ID, got.ID)
}

func TestEncode_RefreshUsesRefreshTTL(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	now := time.Unix(1_700_000_000, 0)

	_, claims, err := c.Encode("u1", TokenTypeRefresh, now)
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.Equal(t, 7*24*time.Hour+time.Second, claims.Remaining(now))
}

func TestRemaining_CoversExpirySecond(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	now := time.Unix(1_700_000_000, 600*int64(time.Millisecond))

	_, claims, err := c.Encode("u1", TokenTypeAccess, now)
	require.NoError(t, err)

	// The record must outlive every instant Decode still accepts.
	lastAccepted := claims.ExpiresAt.Time.Add(999 * time.Millisecond)
	assert.True(t, now.Add(claims.Remaining(now)).After(lastAccepted))
	assert.Equal(t, 15*time.Minute+400*time.Millisecond, claims.Remaining(now))
}

func TestEncode_SameSecondYieldsDistinctTokens(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	now := time.Unix(1_700_000_000, 0)

	a, _, err := c.Encode("u1", TokenTypeAccess, now)
	require.NoError(t, err)
	b, _, err := c.Encode("u1", TokenTypeAccess, now)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecode_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	now := time.Unix(1_700_000_000, 0)
	tok, _, err := c.Encode("u1", TokenTypeAccess, now)
	require.NoError(t, err)

	exp := now.Add(15 * time.Minute)

	_, err = c.Decode(tok, exp)
	require.NoError(t, err, "token must be valid at its exact expiry instant")

	_, err = c.Decode(tok, exp.Add(999*time.Millisecond))
	require.NoError(t, err, "whole-second granularity")

	_, err = c.Decode(tok, exp.Add(time.Second))
	require.ErrorIs(t, err, common.ErrExpiredToken)
}

func TestDecode_WrongSecret(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	other, err := NewCodec([]byte("other-secret"), time.Minute, time.Hour)
	require.NoError(t, err)

	tok, _, err := other.Encode("u2", TokenTypeAccess, time.Now())
	require.NoError(t, err)

	_, err = c.Decode(tok, time.Now())
	require.ErrorIs(t, err, common.ErrMalformedToken)
}

func TestDecode_MalformedString(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	for _, s := range []string{"", "not.a.jwt", "abc", strings.Repeat("x", 64)} {
		_, err := c.Decode(s, time.Now())
		assert.ErrorIs(t, err, common.ErrMalformedToken, "input %q", s)
	}
}

func TestDecode_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UserID: "u1",
		Type:   TokenTypeAccess,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("super-secret"))
	require.NoError(t, err)

	_, err = c.Decode(tok, now)
	require.ErrorIs(t, err, common.ErrMalformedToken)
}

func TestDecode_MissingClaims(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	now := time.Now()
	full := func() *Claims {
		return &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			UserID: "u1",
			Type:   TokenTypeAccess,
		}
	}

	tests := []struct {
		name  string
		strip func(*Claims)
	}{
		{"no user_id", func(c *Claims) { c.UserID = "" }},
		{"no type", func(c *Claims) { c.Type = "" }},
		{"unknown type", func(c *Claims) { c.Type = "id" }},
		{"no exp", func(c *Claims) { c.ExpiresAt = nil }},
		{"no iat", func(c *Claims) { c.IssuedAt = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := full()
			tt.strip(claims)
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("super-secret"))
			require.NoError(t, err)

			_, err = c.Decode(tok, now)
			require.ErrorIs(t, err, common.ErrMalformedToken)
		})
	}
}

func TestNewCodec_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewCodec(nil, time.Minute, time.Hour)
	assert.True(t, errors.Is(err, common.ErrorValidation))

	_, err = NewCodec([]byte("k"), 0, time.Hour)
	assert.True(t, errors.Is(err, common.ErrorValidation))

	_, err = NewCodec([]byte("k"), 500*time.Millisecond, time.Hour)
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = NewCodec([]byte("k"), time.Minute, time.Hour+time.Millisecond)
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = NewCodec([]byte("k"), time.Minute, -time.Hour)
	assert.True(t, errors.Is(err, common.ErrorValidation))
}

func TestEncode_RejectsBadInput(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	_, _, err := c.Encode("", TokenTypeAccess, time.Now())
	require.ErrorIs(t, err, common.ErrorValidation)

	_, _, err = c.Encode("u1", TokenType("id"), time.Now())
	require.ErrorIs(t, err, common.ErrorValidation)
}
