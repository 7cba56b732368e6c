package security_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/security"
)

type stubProvider struct {
	kind security.CredentialKind
	fn   func() (security.Outcome, error)
}

func (p stubProvider) Supports(kind security.CredentialKind) bool { return kind == p.kind }

func (p stubProvider) Authenticate(context.Context, security.Credential) (security.Outcome, error) {
	return p.fn()
}

func TestProviderSet(t *testing.T) {
	ctx := context.Background()
	cred := security.RefreshToken{Token: "t"}

	t.Run("rejects duplicate claims", func(t *testing.T) {
		p := stubProvider{kind: security.CredentialRefreshToken}
		_, err := security.NewProviderSet(p, p)
		require.Error(t, err)
	})

	t.Run("no provider is a service error", func(t *testing.T) {
		ps := security.MustProviderSet()
		_, err := ps.Authenticate(ctx, cred)
		require.Equal(t, security.KindServiceError, security.KindOf(err))
	})

	tests := []struct {
		name     string
		fn       func() (security.Outcome, error)
		wantKind security.Kind
	}{
		{"typed error passes through", func() (security.Outcome, error) {
			return nil, &security.Error{Kind: security.KindMalformedToken, Message: security.MsgAbnormalRequest}
		}, security.KindMalformedToken},
		{"untyped error is hidden", func() (security.Outcome, error) {
			return nil, errors.New("database exploded")
		}, security.KindServiceError},
		{"panic is recovered", func() (security.Outcome, error) {
			panic("boom")
		}, security.KindServiceError},
		{"nil outcome", func() (security.Outcome, error) {
			return nil, nil
		}, security.KindServiceError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := security.MustProviderSet(stubProvider{kind: security.CredentialRefreshToken, fn: tt.fn})
			_, err := ps.Authenticate(ctx, cred)
			require.Equal(t, tt.wantKind, security.KindOf(err))
			if tt.wantKind == security.KindServiceError {
				require.Equal(t, security.MsgUnknown, security.MessageOf(err))
			}
		})
	}

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		ps := security.MustProviderSet(stubProvider{kind: security.CredentialRefreshToken, fn: func() (security.Outcome, error) {
			return security.BearerTokenPair{}, nil
		}})
		_, err := ps.Authenticate(cctx, cred)
		require.Equal(t, security.KindServiceError, security.KindOf(err))
	})
}

func TestPasswordLoginProvider(t *testing.T) {
	clk := newClock()
	codec := newCodec(t, clk)
	ctx := context.Background()

	locked := activeUser()
	locked.Username = "locked@x.com"
	locked.Locked = true

	expired := activeUser()
	expired.Username = "expired@x.com"
	expired.Expired = true
	expired.Disabled = true

	disabled := activeUser()
	disabled.Username = "disabled@x.com"
	disabled.Disabled = true

	oauthOnly := activeUser()
	oauthOnly.Username = "oauth@x.com"
	oauthOnly.PasswordHash = ""

	p := &security.PasswordLoginProvider{
		Users:     newFakeUsers(activeUser(), locked, expired, disabled, oauthOnly),
		Passwords: plainPasswords{},
		Tokens:    codec,
	}

	t.Run("issues a fresh pair", func(t *testing.T) {
		out, err := p.Authenticate(ctx, security.UsernamePassword{Username: userEmail, Password: userPassword})
		require.NoError(t, err)

		pair := out.(security.BearerTokenPair)
		require.Equal(t, userEmail, pair.Subject)
		require.False(t, pair.Rotated)
		require.True(t, clk.Now().Add(30*time.Minute).Equal(pair.AccessTokenExpiresAt))
		require.True(t, clk.Now().Add(24*time.Hour).Equal(pair.RefreshTokenExpiresAt))

		claims, err := codec.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, userEmail, claims.Subject)
		_, err = codec.VerifyRefresh(pair.RefreshToken)
		require.NoError(t, err)
	})

	tests := []struct {
		name     string
		cred     security.UsernamePassword
		wantKind security.Kind
		wantMsg  string
	}{
		{"unknown user", security.UsernamePassword{Username: "ghost@x.com", Password: "x"}, security.KindInvalidUsername, security.MsgBadCredentials},
		{"wrong password", security.UsernamePassword{Username: userEmail, Password: "nope"}, security.KindInvalidPassword, security.MsgBadCredentials},
		{"empty password", security.UsernamePassword{Username: userEmail}, security.KindInvalidPassword, security.MsgBadCredentials},
		{"no local password", security.UsernamePassword{Username: "oauth@x.com"}, security.KindInvalidPassword, security.MsgBadCredentials},
		{"locked", security.UsernamePassword{Username: "locked@x.com", Password: userPassword}, security.KindAccountLocked, security.MsgAccountLocked},
		{"expired checked first", security.UsernamePassword{Username: "expired@x.com", Password: userPassword}, security.KindAccountExpired, security.MsgAccountExpired},
		{"disabled", security.UsernamePassword{Username: "disabled@x.com", Password: userPassword}, security.KindAccountDisabled, security.MsgAccountDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Authenticate(ctx, tt.cred)
			require.Equal(t, tt.wantKind, security.KindOf(err))
			require.Equal(t, tt.wantMsg, security.MessageOf(err))
		})
	}
}

func TestOAuthLoginProvider(t *testing.T) {
	codec := newCodec(t, newClock())
	ctx := context.Background()
	cred := security.OAuthCode{Provider: "kakao", Code: "abc"}

	t.Run("issues a fresh pair", func(t *testing.T) {
		acc := activeUser()
		p := &security.OAuthLoginProvider{Identities: fakeIdentities{account: &acc}, Tokens: codec}

		out, err := p.Authenticate(ctx, cred)
		require.NoError(t, err)
		pair := out.(security.BearerTokenPair)
		require.Equal(t, userEmail, pair.Subject)
		require.NotEmpty(t, pair.RefreshToken)
	})

	t.Run("disabled account", func(t *testing.T) {
		acc := activeUser()
		acc.Disabled = true
		p := &security.OAuthLoginProvider{Identities: fakeIdentities{account: &acc}, Tokens: codec}

		_, err := p.Authenticate(ctx, cred)
		require.Equal(t, security.KindAccountDisabled, security.KindOf(err))
	})

	t.Run("resolver failure", func(t *testing.T) {
		p := &security.OAuthLoginProvider{Identities: fakeIdentities{err: errors.New("upstream down")}, Tokens: codec}
		ps := security.MustProviderSet(p)

		_, err := ps.Authenticate(ctx, cred)
		require.Equal(t, security.KindServiceError, security.KindOf(err))
	})
}

func TestRefreshRotationProvider(t *testing.T) {
	clk := newClock()
	codec := newCodec(t, clk)
	ctx := context.Background()
	users := newFakeUsers(activeUser())
	p := &security.RefreshRotationProvider{Users: users, Tokens: codec}

	refresh, err := codec.IssueRefresh(userEmail)
	require.NoError(t, err)

	t.Run("keeps the refresh token and its expiry", func(t *testing.T) {
		clk.Advance(time.Hour)

		out, err := p.Authenticate(ctx, security.RefreshToken{Token: refresh.Value})
		require.NoError(t, err)

		pair := out.(security.BearerTokenPair)
		require.True(t, pair.Rotated)
		require.Equal(t, refresh.Value, pair.RefreshToken)
		require.True(t, refresh.ExpiresAt.Equal(pair.RefreshTokenExpiresAt))
		require.True(t, clk.Now().Add(30*time.Minute).Equal(pair.AccessTokenExpiresAt))

		_, err = codec.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
	})

	t.Run("access token is the wrong type", func(t *testing.T) {
		access, err := codec.IssueAccess(userEmail)
		require.NoError(t, err)

		_, err = p.Authenticate(ctx, security.RefreshToken{Token: access.Value})
		require.Equal(t, security.KindWrongTokenType, security.KindOf(err))
	})

	t.Run("garbage is malformed", func(t *testing.T) {
		_, err := p.Authenticate(ctx, security.RefreshToken{Token: "garbage"})
		require.Equal(t, security.KindMalformedToken, security.KindOf(err))
	})

	t.Run("user locked since issue", func(t *testing.T) {
		acc := activeUser()
		acc.Locked = true
		locked := &security.RefreshRotationProvider{Users: newFakeUsers(acc), Tokens: codec}

		_, err := locked.Authenticate(ctx, security.RefreshToken{Token: refresh.Value})
		require.Equal(t, security.KindAccountLocked, security.KindOf(err))
	})

	t.Run("expired token yields an empty pair", func(t *testing.T) {
		clk.Advance(24 * time.Hour)

		out, err := p.Authenticate(ctx, security.RefreshToken{Token: refresh.Value})
		require.NoError(t, err)
		require.True(t, out.(security.BearerTokenPair).IsEmpty())
	})
}

func TestAccessVerificationProvider(t *testing.T) {
	clk := newClock()
	codec := newCodec(t, clk)
	ctx := context.Background()
	p := &security.AccessVerificationProvider{Users: newFakeUsers(activeUser()), Tokens: codec}

	access, err := codec.IssueAccess(userEmail)
	require.NoError(t, err)

	t.Run("returns the principal", func(t *testing.T) {
		out, err := p.Authenticate(ctx, security.BearerAccessToken{Token: access.Value})
		require.NoError(t, err)

		principal := out.(*security.Principal)
		require.Equal(t, userEmail, principal.Subject)
		require.True(t, principal.HasAuthority("ROLE_USER"))
		require.Equal(t, "user-record", principal.User)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := p.Authenticate(ctx, security.BearerAccessToken{})
		require.Equal(t, security.KindMalformedToken, security.KindOf(err))
	})

	t.Run("refresh token is the wrong type", func(t *testing.T) {
		refresh, err := codec.IssueRefresh(userEmail)
		require.NoError(t, err)

		_, err = p.Authenticate(ctx, security.BearerAccessToken{Token: refresh.Value})
		require.Equal(t, security.KindWrongTokenType, security.KindOf(err))
	})

	t.Run("deleted user", func(t *testing.T) {
		ghost, err := codec.IssueAccess("ghost@x.com")
		require.NoError(t, err)

		_, err = p.Authenticate(ctx, security.BearerAccessToken{Token: ghost.Value})
		require.Equal(t, security.KindInvalidUsername, security.KindOf(err))
	})

	t.Run("expired at the boundary", func(t *testing.T) {
		clk.Advance(30 * time.Minute)

		_, err := p.Authenticate(ctx, security.BearerAccessToken{Token: access.Value})
		require.Equal(t, security.KindExpired, security.KindOf(err))
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})
}

func TestMockAccessProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("active subject", func(t *testing.T) {
		p := &security.MockAccessProvider{Users: newFakeUsers(activeUser()), Subject: userEmail}

		out, err := p.Authenticate(ctx, security.BearerAccessToken{})
		require.NoError(t, err)
		require.Equal(t, userEmail, out.(*security.Principal).Subject)
	})

	t.Run("locked subject", func(t *testing.T) {
		acc := activeUser()
		acc.Locked = true
		p := &security.MockAccessProvider{Users: newFakeUsers(acc), Subject: userEmail}

		out, err := p.Authenticate(ctx, security.BearerAccessToken{})
		require.Nil(t, out)
		require.Equal(t, security.KindAccountLocked, security.KindOf(err))
	})
}
