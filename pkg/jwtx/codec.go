package jwtx

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host
)

// ExpiryLayout is the human readable layout used when an expiry is rendered
// for clients.
const ExpiryLayout = "2006-01-02 15:04:05"

// DefaultZone is used when CodecConfig.Location is nil.
const DefaultZone = "Asia/Seoul"

// MinSecretLength is the shortest HMAC secret NewCodec accepts.
const MinSecretLength = 32

// CodecConfig holds the secret, token lifetimes and zone a Codec is built from.
type CodecConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Location is the zone expiries are rendered in (default: Asia/Seoul).
	Location *time.Location

	// Now overrides the clock, mostly for tests (default: time.Now).
	Now func() time.Time
}

// Codec issues and verifies typed, expiring HS256 tokens. It holds only
// values fixed at construction and is safe for concurrent use.
type Codec struct {
	signer     Signer
	verifier   Verifier
	accessTTL  time.Duration
	refreshTTL time.Duration
	loc        *time.Location
	now        func() time.Time
}

// NewCodec validates cfg and builds a Codec. The secret is copied so later
// changes to the caller's slice have no effect.
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		loc, err := time.LoadLocation(DefaultZone)
		if err != nil {
			return nil, fmt.Errorf("jwtx: load zone %q: %w", DefaultZone, err)
		}
		cfg.Location = loc
	}

	return &Codec{
		signer:     newHS256Signer(secret),
		verifier:   newHS256Verifier(secret, cfg.Now),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		loc:        cfg.Location,
		now:        cfg.Now,
	}, nil
}

// Issue signs a token for subject that expires ttl from now.
func (c *Codec) Issue(subject string, ttl time.Duration, typ TokenType) (Token, error) {
	claims := NewClaims(subject, typ, ttl, c.now())

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return Token{}, fmt.Errorf("jwtx: sign: %w", err)
	}

	return Token{
		Value:     signed,
		Type:      typ,
		ExpiresAt: claims.ExpiresAtTime(),
	}, nil
}

// IssueAccess signs an access token that lives for the configured access TTL.
func (c *Codec) IssueAccess(subject string) (Token, error) {
	return c.Issue(subject, c.accessTTL, TypeAccess)
}

// IssueRefresh signs a refresh token that lives for the configured refresh TTL.
func (c *Codec) IssueRefresh(subject string) (Token, error) {
	return c.Issue(subject, c.refreshTTL, TypeRefresh)
}

// Verify checks signature, structure and expiry. It fails with ErrExpired
// when now is at or past exp and with ErrMalformed for everything else.
func (c *Codec) Verify(token string) (*Claims, error) {
	return c.verifier.Verify(token)
}

// VerifyAccess is Verify followed by a type check for access tokens.
func (c *Codec) VerifyAccess(token string) (*Claims, error) {
	return c.verifyTyped(token, TypeAccess)
}

// VerifyRefresh is Verify followed by a type check for refresh tokens.
func (c *Codec) VerifyRefresh(token string) (*Claims, error) {
	return c.verifyTyped(token, TypeRefresh)
}

func (c *Codec) verifyTyped(token string, typ TokenType) (*Claims, error) {
	claims, err := c.Verify(token)
	if err != nil {
		return nil, err
	}
	if err := claims.ExpectType(typ); err != nil {
		return nil, err
	}
	return claims, nil
}

// IsValid reports whether token verifies. A blank token is simply invalid.
// ErrExpired is returned rather than folded into false so callers can tell
// an expired token apart from a forged one.
func (c *Codec) IsValid(token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}

	if _, err := c.Verify(token); err != nil {
		if errors.Is(err, ErrExpired) {
			return false, err
		}
		return false, nil
	}

	return true, nil
}

// Local converts t into the codec's fixed zone.
func (c *Codec) Local(t time.Time) time.Time { return t.In(c.loc) }

// Location is the codec's fixed zone.
func (c *Codec) Location() *time.Location { return c.loc }

// Now is the codec's clock.
func (c *Codec) Now() time.Time { return c.now() }

// AccessTTL is the lifetime given to access tokens.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL is the lifetime given to refresh tokens.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }
