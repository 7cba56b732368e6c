package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/oauth"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/security"
)

func newUserService(t *testing.T) (*service.UserService, *cryptox.Hasher) {
	t.Helper()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	hasher, err := cryptox.NewHasher(cryptox.AlgorithmBcrypt, bcrypt.MinCost, "")
	require.NoError(t, err)
	return &service.UserService{Store: st, Passwords: hasher}, hasher
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	users, hasher := newUserService(t)

	u, err := users.Register(ctx, service.RegisterInput{
		Email:    " alice@example.com ",
		Name:     "Alice",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, domain.DefaultAuthorities, u.Authorities)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := users.Register(ctx, service.RegisterInput{Email: "alice@example.com", Name: "A", Password: "correct-horse"})
		require.ErrorIs(t, err, service.ErrEmailTaken)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := users.Register(ctx, service.RegisterInput{Email: "not-an-email", Name: "A", Password: "correct-horse"})
		require.ErrorIs(t, err, service.ErrInvalidUserInput)

		_, err = users.Register(ctx, service.RegisterInput{Email: "bob@example.com", Name: "Bob", Password: "short"})
		require.ErrorIs(t, err, service.ErrInvalidUserInput)
	})

	t.Run("account carries hash and flags", func(t *testing.T) {
		acct, err := users.FindUserByIdentifier(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", acct.Username)
		require.True(t, hasher.Matches("correct-horse", acct.PasswordHash))
		require.NoError(t, acct.ValidateStatus())
		require.IsType(t, domain.User{}, acct.User)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := users.FindUserByIdentifier(ctx, "nobody@example.com")
		require.ErrorIs(t, err, security.ErrUserNotFound)
	})
}

func TestUserService_RecordLastLogin(t *testing.T) {
	ctx := context.Background()
	users, _ := newUserService(t)

	_, err := users.Register(ctx, service.RegisterInput{Email: "alice@example.com", Name: "Alice", Password: "correct-horse"})
	require.NoError(t, err)

	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, users.RecordLastLogin(ctx, "alice@example.com", at))

	u, err := users.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, u.LastLoginAt)
	require.True(t, at.Equal(*u.LastLoginAt))

	require.Error(t, users.RecordLastLogin(ctx, "nobody@example.com", at))
}

type fakeResolver struct {
	profile oauth.Profile
	err     error
}

func (f fakeResolver) Resolve(context.Context, string, string) (oauth.Profile, error) {
	return f.profile, f.err
}

func TestOAuthUserService(t *testing.T) {
	ctx := context.Background()
	users, _ := newUserService(t)

	profile := oauth.Profile{Provider: "kakao", ID: "42", Email: "kim@example.com", Name: "Kim"}
	svc := &service.OAuthUserService{Store: users.Store, Providers: fakeResolver{profile: profile}}

	first, err := svc.FindOrCreateExternalIdentity(ctx, "kakao", "code-1")
	require.NoError(t, err)
	require.Equal(t, "kim@example.com", first.Username)
	require.Empty(t, first.PasswordHash)

	t.Run("second sign in reuses the user", func(t *testing.T) {
		again, err := svc.FindOrCreateExternalIdentity(ctx, "kakao", "code-2")
		require.NoError(t, err)
		require.Equal(t, first.User.(domain.User).ID, again.User.(domain.User).ID)
	})

	t.Run("oauth user cannot log in with a password", func(t *testing.T) {
		acct, err := users.FindUserByIdentifier(ctx, "kim@example.com")
		require.NoError(t, err)
		require.Error(t, acct.ValidatePassword(passwordsAlwaysMatch{}, "anything"))
	})

	t.Run("email owned by another user", func(t *testing.T) {
		other := &service.OAuthUserService{
			Store:     users.Store,
			Providers: fakeResolver{profile: oauth.Profile{Provider: "kakao", ID: "43", Email: "kim@example.com", Name: "Kim2"}},
		}
		_, err := other.FindOrCreateExternalIdentity(ctx, "kakao", "code-3")
		require.ErrorIs(t, err, service.ErrEmailTaken)
	})

	t.Run("upstream failure", func(t *testing.T) {
		boom := errors.New("upstream down")
		failing := &service.OAuthUserService{Store: users.Store, Providers: fakeResolver{err: boom}}
		_, err := failing.FindOrCreateExternalIdentity(ctx, "kakao", "code-4")
		require.ErrorIs(t, err, boom)
	})
}

type passwordsAlwaysMatch struct{}

func (passwordsAlwaysMatch) Matches(string, string) bool { return true }

func TestBootstrapService(t *testing.T) {
	ctx := context.Background()
	users, hasher := newUserService(t)
	svc := &service.BootstrapService{Users: users}

	res, err := svc.Bootstrap(ctx, "admin@example.com", "", "")
	require.NoError(t, err)
	require.Len(t, res.Password, 12)
	require.Equal(t, service.AdminAuthorities, res.User.Authorities)

	acct, err := users.FindUserByIdentifier(ctx, "admin@example.com")
	require.NoError(t, err)
	require.True(t, hasher.Matches(res.Password, acct.PasswordHash))

	_, err = svc.Bootstrap(ctx, "admin2@example.com", "", "")
	require.ErrorIs(t, err, service.ErrBootstrapAlready)
}
