package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants used when configuration leaves them unset.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 30 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 14 * 24 * time.Hour
)

// TokenType tags a token with the role it was issued for. An access token
// must never be accepted where a refresh token is expected and vice versa.
type TokenType string

const (
	TypeAccess  TokenType = "ACCESS_TOKEN"
	TypeRefresh TokenType = "REFRESH_TOKEN"
)

func (t TokenType) String() string { return string(t) }

// Valid reports whether t is one of the known token types.
func (t TokenType) Valid() bool {
	return t == TypeAccess || t == TypeRefresh
}

// Claims are the decoded payload of a tollgate token.
type Claims struct {
	jwt.RegisteredClaims

	// Type is serialised as the "type" claim.
	Type TokenType `json:"type,omitempty"`
}

// NewClaims builds the claims for a token issued at now that lives for ttl.
func NewClaims(subject string, typ TokenType, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: typ,
	}
}

// ExpectType fails with ErrWrongTokenType when the claims were issued for a
// different purpose than want.
func (c *Claims) ExpectType(want TokenType) error {
	if c.Type != want {
		return ErrWrongTokenType
	}
	return nil
}

// ExpiresAtTime returns the exp claim or the zero time when it is absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAtTime returns the iat claim or the zero time when it is absent.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// Token is a signed token string together with what was put into it.
type Token struct {
	Value     string
	Type      TokenType
	ExpiresAt time.Time
}

// IsZero reports whether no token is held.
func (t Token) IsZero() bool { return t.Value == "" }
