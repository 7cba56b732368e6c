package security

import (
	"context"
	"errors"
	"fmt"
)

// PasswordLoginProvider authenticates email and password logins.
type PasswordLoginProvider struct {
	Users     UserLoader
	Passwords PasswordMatcher
	Tokens    TokenService
}

func (p *PasswordLoginProvider) Supports(kind CredentialKind) bool {
	return kind == CredentialUsernamePassword
}

func (p *PasswordLoginProvider) Authenticate(ctx context.Context, cred Credential) (Outcome, error) {
	c, ok := cred.(UsernamePassword)
	if !ok {
		return nil, fmt.Errorf("unexpected credential %T", cred)
	}

	account, err := p.Users.FindUserByIdentifier(ctx, c.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, newError(KindInvalidUsername, MsgBadCredentials, err)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := account.ValidateStatus(); err != nil {
		return nil, err
	}
	if err := account.ValidatePassword(p.Passwords, c.Password); err != nil {
		return nil, err
	}

	return issuePair(p.Tokens, account.Username)
}

// OAuthLoginProvider authenticates an upstream authorization code.
type OAuthLoginProvider struct {
	Identities OAuthUserLoader
	Tokens     TokenService
}

func (p *OAuthLoginProvider) Supports(kind CredentialKind) bool {
	return kind == CredentialOAuthCode
}

func (p *OAuthLoginProvider) Authenticate(ctx context.Context, cred Credential) (Outcome, error) {
	c, ok := cred.(OAuthCode)
	if !ok {
		return nil, fmt.Errorf("unexpected credential %T", cred)
	}

	account, err := p.Identities.FindOrCreateExternalIdentity(ctx, c.Provider, c.Code)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, newError(KindInvalidUsername, MsgBadCredentials, err)
		}
		return nil, fmt.Errorf("resolve %s identity: %w", c.Provider, err)
	}

	if err := account.ValidateStatus(); err != nil {
		return nil, err
	}

	return issuePair(p.Tokens, account.Username)
}

func issuePair(tokens TokenService, subject string) (BearerTokenPair, error) {
	access, err := tokens.IssueAccess(subject)
	if err != nil {
		return BearerTokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := tokens.IssueRefresh(subject)
	if err != nil {
		return BearerTokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return BearerTokenPair{
		Subject:               subject,
		AccessToken:           access.Value,
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshToken:          refresh.Value,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
	}, nil
}
