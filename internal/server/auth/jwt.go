// Package auth implements the token codec: a stateless mapping between a
// claims tuple and an HS256-signed JWT string.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// TokenType discriminates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

func (t TokenType) Valid() bool {
	return t == TokenTypeAccess || t == TokenTypeRefresh
}

// Claims is the JWT payload. Claim names follow the wire format of the
// services this codec replaces: "user_id" and "type" next to exp/iat/jti.
type Claims struct {
	jwt.RegisteredClaims
	UserID string    `json:"user_id"`
	Type   TokenType `json:"type"`
}

// Codec encodes and decodes tokens. It is safe for concurrent use; its
// fields are read-only after construction.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec builds a Codec. The secret must be non-empty and both ttls whole
// seconds of at least one second, since exp and iat have second precision.
func NewCodec(secretKey []byte, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if len(secretKey) == 0 {
		return nil, fmt.Errorf("%w: empty secret key", common.ErrorValidation)
	}
	if err := CheckTTL(accessTTL); err != nil {
		return nil, fmt.Errorf("access: %w", err)
	}
	if err := CheckTTL(refreshTTL); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return &Codec{secret: secretKey, accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

// CheckTTL rejects token lifetimes that are not a whole number of seconds,
// at least one.
func CheckTTL(ttl time.Duration) error {
	if ttl < time.Second || ttl%time.Second != 0 {
		return fmt.Errorf("%w: token ttl must be whole seconds >= 1s, got %s", common.ErrorValidation, ttl)
	}
	return nil
}

// TTL returns the configured lifetime for tokens of type t.
func (c *Codec) TTL(t TokenType) time.Duration {
	if t == TokenTypeRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Encode mints a token for subjectID. Timestamps are truncated to whole
// seconds, so the returned claims carry exactly what the token carries.
func (c *Codec) Encode(subjectID string, tokenType TokenType, now time.Time) (string, *Claims, error) {
	if subjectID == "" {
		return "", nil, fmt.Errorf("%w: empty subject", common.ErrorValidation)
	}
	if !tokenType.Valid() {
		return "", nil, fmt.Errorf("%w: unknown token type %q", common.ErrorValidation, tokenType)
	}

	issuedAt := now.Truncate(time.Second)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.TTL(tokenType))),
		},
		UserID: subjectID,
		Type:   tokenType,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, err
	}

	return tokenString, claims, nil
}

// Decode verifies the signature and claims of tokenString.
//
// It fails with common.ErrMalformedToken when the signature does not verify
// or a required claim is missing, and with common.ErrExpiredToken once now is
// past the expiry second. A token is still valid during its expiry second.
func (c *Codec) Decode(tokenString string, now time.Time) (*Claims, error) {
	claims := &Claims{}

	// Claims are checked by validate: the token stays valid through its
	// exact expiry second.
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}

	if err := claims.validate(now); err != nil {
		return nil, err
	}

	return claims, nil
}

func (c *Claims) validate(now time.Time) error {
	switch {
	case c.UserID == "":
		return fmt.Errorf("%w: missing user_id", common.ErrMalformedToken)
	case !c.Type.Valid():
		return fmt.Errorf("%w: bad type %q", common.ErrMalformedToken, c.Type)
	case c.ExpiresAt == nil:
		return fmt.Errorf("%w: missing exp", common.ErrMalformedToken)
	case c.IssuedAt == nil:
		return fmt.Errorf("%w: missing iat", common.ErrMalformedToken)
	}

	if now.Unix() > c.ExpiresAt.Unix() {
		return common.ErrExpiredToken
	}

	return nil
}

// Remaining returns how long after now the token is still accepted by
// Decode, i.e. up to the end of its expiry second. It is the ttl a store
// record must be given.
func (c *Claims) Remaining(now time.Time) time.Duration {
	return c.ExpiresAt.Time.Add(time.Second).Sub(now)
}
