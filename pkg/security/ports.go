package security

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// ErrUserNotFound is returned by lookups when no account matches.
var ErrUserNotFound = errors.New("security: user not found")

// UserLoader finds an account by the identifier tokens are issued for.
type UserLoader interface {
	FindUserByIdentifier(ctx context.Context, identifier string) (*Account, error)
}

// OAuthUserLoader resolves an upstream authorization code into a local
// account, creating one on first sight.
type OAuthUserLoader interface {
	FindOrCreateExternalIdentity(ctx context.Context, provider, code string) (*Account, error)
}

// LastLoginRecorder stores the time of the last successful login.
type LastLoginRecorder interface {
	RecordLastLogin(ctx context.Context, identifier string, at time.Time) error
}

// TokenService is the slice of jwtx.Codec the providers need.
type TokenService interface {
	IssueAccess(subject string) (jwtx.Token, error)
	IssueRefresh(subject string) (jwtx.Token, error)
	VerifyAccess(token string) (*jwtx.Claims, error)
	VerifyRefresh(token string) (*jwtx.Claims, error)
}

var _ TokenService = (*jwtx.Codec)(nil)
