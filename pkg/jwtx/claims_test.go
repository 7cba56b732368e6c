package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestExpectType(t *testing.T) {
	c := &jwtx.Claims{Type: jwtx.TypeAccess}

	t.Run("matching type", func(t *testing.T) {
		require.NoError(t, c.ExpectType(jwtx.TypeAccess))
	})

	t.Run("mismatched type", func(t *testing.T) {
		err := c.ExpectType(jwtx.TypeRefresh)
		require.ErrorIs(t, err, jwtx.ErrWrongTokenType)
	})

	t.Run("missing type", func(t *testing.T) {
		empty := &jwtx.Claims{}
		require.ErrorIs(t, empty.ExpectType(jwtx.TypeAccess), jwtx.ErrWrongTokenType)
	})
}

func TestNewClaims(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	c := jwtx.NewClaims("user@x.com", jwtx.TypeRefresh, time.Hour, now)

	require.Equal(t, "user@x.com", c.Subject)
	require.Equal(t, jwtx.TypeRefresh, c.Type)
	require.Equal(t, now, c.IssuedAtTime())
	require.Equal(t, now.Add(time.Hour), c.ExpiresAtTime())
	require.Empty(t, c.ID, "tokens carry no jti")
}

func TestClaimsTimeAccessors(t *testing.T) {
	var c jwtx.Claims
	require.True(t, c.ExpiresAtTime().IsZero())
	require.True(t, c.IssuedAtTime().IsZero())

	now := time.Unix(1700000000, 0)
	c.ExpiresAt = jwt.NewNumericDate(now)
	require.True(t, c.ExpiresAtTime().Equal(now))
}

func TestTokenTypeValid(t *testing.T) {
	require.True(t, jwtx.TypeAccess.Valid())
	require.True(t, jwtx.TypeRefresh.Valid())
	require.False(t, jwtx.TokenType("ID_TOKEN").Valid())
}
