package security

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// RefreshRotationProvider exchanges a refresh token for a new access token.
// The refresh token itself is handed back unchanged with its original expiry.
// An expired refresh token is not an error: the result is an empty pair and
// the client has to log in again.
type RefreshRotationProvider struct {
	Users  UserLoader
	Tokens TokenService
}

func (p *RefreshRotationProvider) Supports(kind CredentialKind) bool {
	return kind == CredentialRefreshToken
}

func (p *RefreshRotationProvider) Authenticate(ctx context.Context, cred Credential) (Outcome, error) {
	c, ok := cred.(RefreshToken)
	if !ok {
		return nil, fmt.Errorf("unexpected credential %T", cred)
	}

	claims, err := p.Tokens.VerifyRefresh(c.Token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			slogx.FromContext(ctx).Info("refresh token expired",
				"token_fp", cryptox.FingerprintToken(c.Token))
			return BearerTokenPair{}, nil
		}
		return nil, tokenError(err)
	}

	account, err := loadAccount(ctx, p.Users, claims.Subject)
	if err != nil {
		return nil, err
	}
	if err := account.ValidateStatus(); err != nil {
		return nil, err
	}

	access, err := p.Tokens.IssueAccess(account.Username)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return BearerTokenPair{
		Subject:               account.Username,
		AccessToken:           access.Value,
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshToken:          c.Token,
		RefreshTokenExpiresAt: claims.ExpiresAtTime(),
		Rotated:               true,
	}, nil
}

// AccessVerificationProvider turns a bearer access token into a Principal.
type AccessVerificationProvider struct {
	Users  UserLoader
	Tokens TokenService
}

func (p *AccessVerificationProvider) Supports(kind CredentialKind) bool {
	return kind == CredentialBearerAccessToken
}

func (p *AccessVerificationProvider) Authenticate(ctx context.Context, cred Credential) (Outcome, error) {
	c, ok := cred.(BearerAccessToken)
	if !ok {
		return nil, fmt.Errorf("unexpected credential %T", cred)
	}
	if strings.TrimSpace(c.Token) == "" {
		return nil, newError(KindMalformedToken, MsgAbnormalRequest, nil)
	}

	claims, err := p.Tokens.VerifyAccess(c.Token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return nil, newError(KindExpired, MsgCredentialsExpired, err)
		}
		return nil, tokenError(err)
	}

	account, err := loadAccount(ctx, p.Users, claims.Subject)
	if err != nil {
		return nil, err
	}
	if err := account.ValidateStatus(); err != nil {
		return nil, err
	}

	return account.Principal(), nil
}

// MockAccessProvider authorizes every request as a fixed subject. It exists
// for local development against a seeded database and must never be enabled
// alongside AccessVerificationProvider.
type MockAccessProvider struct {
	Users   UserLoader
	Subject string
}

func (p *MockAccessProvider) Supports(kind CredentialKind) bool {
	return kind == CredentialBearerAccessToken
}

func (p *MockAccessProvider) Authenticate(ctx context.Context, _ Credential) (Outcome, error) {
	account, err := p.Users.FindUserByIdentifier(ctx, p.Subject)
	if err != nil {
		return nil, fmt.Errorf("load mock subject %q: %w", p.Subject, err)
	}
	if err := account.ValidateStatus(); err != nil {
		return nil, err
	}
	return account.Principal(), nil
}

// loadAccount resolves a token subject. A subject that no longer exists is
// reported like a bad token rather than a bad login.
func loadAccount(ctx context.Context, users UserLoader, subject string) (*Account, error) {
	account, err := users.FindUserByIdentifier(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, newError(KindInvalidUsername, MsgBadCredentials, err)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return account, nil
}

func tokenError(err error) error {
	if errors.Is(err, jwtx.ErrWrongTokenType) {
		return newError(KindWrongTokenType, MsgAbnormalRequest, err)
	}
	return newError(KindMalformedToken, MsgAbnormalRequest, err)
}
