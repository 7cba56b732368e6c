package security_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/security"
)

func TestFailureResponderStatus(t *testing.T) {
	tests := []struct {
		kind  security.Kind
		authn int
		authz int
	}{
		{security.KindInvalidUsernameFormat, 400, 400},
		{security.KindInvalidUsername, 400, 400},
		{security.KindInvalidPassword, 400, 400},
		{security.KindInvalidRequest, 400, 400},
		{security.KindAccountExpired, 400, 400},
		{security.KindAccountLocked, 400, 400},
		{security.KindAccountDisabled, 400, 400},
		{security.KindMissingRefreshToken, 401, 401},
		{security.KindMalformedToken, 401, 401},
		{security.KindWrongTokenType, 401, 401},
		{security.KindExpired, 500, 401},
		{security.KindServiceError, 500, 401},
	}

	authn := security.FailureResponder{Family: security.AuthenticationFamily}
	authz := security.FailureResponder{Family: security.AuthorizationFamily}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			require.Equal(t, tt.authn, authn.Status(tt.kind))
			require.Equal(t, tt.authz, authz.Status(tt.kind))
		})
	}
}

func TestFailureResponderOnFailure(t *testing.T) {
	t.Run("hides internal detail", func(t *testing.T) {
		rec := httptest.NewRecorder()
		security.FailureResponder{}.OnFailure(rec, httptest.NewRequest(http.MethodPost, "/login", nil),
			errors.New("pq: connection refused"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeEnvelope(t, rec)
		require.Equal(t, false, body["success"])
		require.Equal(t, float64(500), body["code"])
		require.Equal(t, security.MsgUnknown, body["message"])
		require.NotContains(t, rec.Body.String(), "connection refused")
		require.Empty(t, rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("authorization challenge", func(t *testing.T) {
		rec := httptest.NewRecorder()
		security.FailureResponder{Family: security.AuthorizationFamily}.OnFailure(rec,
			httptest.NewRequest(http.MethodGet, "/x", nil),
			&security.Error{Kind: security.KindExpired, Message: security.MsgCredentialsExpired})

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
		require.Equal(t, security.MsgCredentialsExpired, decodeEnvelope(t, rec)["message"])
	})
}

func TestTokenSuccessHandler(t *testing.T) {
	clk := newClock()
	seoul, err := time.LoadLocation(jwtx.DefaultZone)
	require.NoError(t, err)

	pair := security.BearerTokenPair{
		Subject:               userEmail,
		AccessToken:           "access",
		AccessTokenExpiresAt:  clk.Now().Add(30 * time.Minute),
		RefreshToken:          "refresh",
		RefreshTokenExpiresAt: clk.Now().Add(24*time.Hour + 500*time.Millisecond),
	}

	newHandler := func(users *fakeUsers) *security.TokenSuccessHandler {
		return &security.TokenSuccessHandler{
			CookieName: "refresh_token",
			LastLogin:  users,
			Location:   seoul,
			Now:        clk.Now,
		}
	}

	t.Run("fresh login", func(t *testing.T) {
		users := newFakeUsers()
		rec := httptest.NewRecorder()
		err := newHandler(users).OnSuccess(rec, httptest.NewRequest(http.MethodPost, "/login", nil), pair, nil)
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeEnvelope(t, rec)
		require.Equal(t, true, body["success"])
		content := body["content"].(map[string]any)
		require.Equal(t, "access", content["accessToken"])
		require.Equal(t, "2024-03-01 21:30:00", content["accessTokenExpiresIn"])
		require.NotContains(t, rec.Body.String(), "refresh")

		c := refreshCookie(rec, "refresh_token")
		require.NotNil(t, c)
		require.Equal(t, "refresh", c.Value)
		require.Equal(t, "/", c.Path)
		require.True(t, c.Secure)
		require.True(t, c.HttpOnly)
		require.Equal(t, 24*60*60+1, c.MaxAge)

		at, ok := users.LastLogin(userEmail)
		require.True(t, ok)
		require.Equal(t, clk.Now(), at)
	})

	t.Run("rotation does not count as a login", func(t *testing.T) {
		users := newFakeUsers()
		rotated := pair
		rotated.Rotated = true

		rec := httptest.NewRecorder()
		require.NoError(t, newHandler(users).OnSuccess(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil), rotated, nil))

		require.NotNil(t, refreshCookie(rec, "refresh_token"))
		_, ok := users.LastLogin(userEmail)
		require.False(t, ok)
	})

	t.Run("empty pair", func(t *testing.T) {
		users := newFakeUsers()
		rec := httptest.NewRecorder()
		require.NoError(t, newHandler(users).OnSuccess(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil), security.BearerTokenPair{}, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		content := decodeEnvelope(t, rec)["content"].(map[string]any)
		require.Nil(t, content["accessToken"])
		require.Nil(t, content["accessTokenExpiresIn"])
		require.Contains(t, content, "accessToken")
		require.Nil(t, refreshCookie(rec, "refresh_token"))
		_, ok := users.LastLogin("")
		require.False(t, ok)
	})

	t.Run("wrong outcome", func(t *testing.T) {
		err := newHandler(newFakeUsers()).OnSuccess(httptest.NewRecorder(),
			httptest.NewRequest(http.MethodPost, "/login", nil), &security.Principal{}, nil)
		require.Error(t, err)
	})
}

func TestAuthorizationSuccessHandler(t *testing.T) {
	principal := &security.Principal{Subject: userEmail}

	var seen *security.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = security.PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	err := security.AuthorizationSuccessHandler{}.OnSuccess(rec, httptest.NewRequest(http.MethodGet, "/x", nil), principal, next)
	require.NoError(t, err)
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Same(t, principal, seen)

	err = security.AuthorizationSuccessHandler{}.OnSuccess(rec, httptest.NewRequest(http.MethodGet, "/x", nil), principal, nil)
	require.Error(t, err)
}
