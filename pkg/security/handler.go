package security

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// SuccessHandler renders a successful outcome. Terminal stages pass a nil
// next; the authorization stage passes the rest of the chain.
type SuccessHandler interface {
	OnSuccess(w http.ResponseWriter, r *http.Request, out Outcome, next http.Handler) error
}

// FailureHandler renders a failed authentication.
type FailureHandler interface {
	OnFailure(w http.ResponseWriter, r *http.Request, err error)
}

// TokenSuccessHandler writes a BearerTokenPair as JSON and, when a refresh
// token is present, as a cookie. Fresh logins are recorded as last login.
type TokenSuccessHandler struct {
	CookieName string
	LastLogin  LastLoginRecorder
	Location   *time.Location
	Now        func() time.Time
}

func (h *TokenSuccessHandler) OnSuccess(w http.ResponseWriter, r *http.Request, out Outcome, _ http.Handler) error {
	pair, ok := out.(BearerTokenPair)
	if !ok {
		return fmt.Errorf("token handler cannot render %T", out)
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}

	if pair.Subject != "" {
		slogx.SetSubject(r.Context(), pair.Subject)
	}
	if pair.RefreshToken != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     h.CookieName,
			Value:    pair.RefreshToken,
			Path:     "/",
			MaxAge:   secondsUntil(now(), pair.RefreshTokenExpiresAt),
			Secure:   true,
			HttpOnly: true,
		})

		if !pair.Rotated && h.LastLogin != nil {
			if err := h.LastLogin.RecordLastLogin(r.Context(), pair.Subject, now()); err != nil {
				slogx.FromContext(r.Context()).Warn("record last login failed", "subject", pair.Subject, "error", err)
			}
		}
	}

	httpx.WriteJSON(w, http.StatusOK, Success(NewBearerBody(pair, loc)))
	return nil
}

// secondsUntil rounds up and never returns less than 1, since a Max-Age of
// zero or below deletes the cookie.
func secondsUntil(now, t time.Time) int {
	secs := int(math.Ceil(t.Sub(now).Seconds()))
	return max(secs, 1)
}

// AuthorizationSuccessHandler attaches the principal to the request context
// and hands the request on.
type AuthorizationSuccessHandler struct{}

func (AuthorizationSuccessHandler) OnSuccess(w http.ResponseWriter, r *http.Request, out Outcome, next http.Handler) error {
	p, ok := out.(*Principal)
	if !ok || p == nil {
		return fmt.Errorf("authorization handler cannot attach %T", out)
	}
	if next == nil {
		return errors.New("authorization handler has no next handler")
	}
	slogx.SetSubject(r.Context(), p.Subject)
	next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	return nil
}

// Family selects how the ambiguous kinds are reported.
type Family int

const (
	// AuthenticationFamily covers the login, oauth and refresh stages, where
	// an expired token or an internal failure is reported as a server error.
	AuthenticationFamily Family = iota
	// AuthorizationFamily covers the bearer stage, where the same kinds are a
	// plain 401.
	AuthorizationFamily
)

// FailureResponder maps error kinds to statuses and writes the envelope.
type FailureResponder struct {
	Family Family
}

// Status returns the HTTP status for kind.
func (f FailureResponder) Status(kind Kind) int {
	switch kind {
	case KindInvalidUsernameFormat, KindInvalidUsername, KindInvalidPassword, KindInvalidRequest,
		KindAccountExpired, KindAccountLocked, KindAccountDisabled:
		return http.StatusBadRequest
	case KindMissingRefreshToken, KindMalformedToken, KindWrongTokenType:
		return http.StatusUnauthorized
	}

	if f.Family == AuthorizationFamily {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func (f FailureResponder) OnFailure(w http.ResponseWriter, r *http.Request, err error) {
	kind := KindOf(err)
	status := f.Status(kind)
	msg := MessageOf(err)

	slogx.FromContext(r.Context()).Warn("authentication request failed",
		"kind", kind.String(),
		"status", status,
		"message", msg,
	)

	if status == http.StatusUnauthorized && f.Family == AuthorizationFamily {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	httpx.WriteJSON(w, status, Failure(status, msg))
}
