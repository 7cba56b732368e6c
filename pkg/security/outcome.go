package security

import (
	"context"
	"slices"
	"time"
)

// Outcome is what a provider produces on success: either a BearerTokenPair
// for the credential endpoints or a *Principal for authorization.
type Outcome interface {
	outcome()
}

// BearerTokenPair is the token material handed back to a client. The zero
// value is the empty pair returned when a refresh token has expired and the
// client has to log in again.
type BearerTokenPair struct {
	Subject string

	AccessToken          string
	AccessTokenExpiresAt time.Time

	RefreshToken          string
	RefreshTokenExpiresAt time.Time

	// Rotated marks a pair produced by refresh rotation, where the refresh
	// token is the one the client already holds.
	Rotated bool
}

func (BearerTokenPair) outcome() {}

// IsEmpty reports whether the pair carries no tokens at all.
func (p BearerTokenPair) IsEmpty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Principal is a verified identity attached to an authorized request.
type Principal struct {
	Subject     string
	Authorities []string

	// User is the collaborator's own user record, opaque to this package.
	User any
}

func (*Principal) outcome() {}

// HasAuthority reports whether the principal was granted a.
func (p *Principal) HasAuthority(a string) bool {
	return slices.Contains(p.Authorities, a)
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached by the authorization stage.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
