package security

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Converter extracts an unverified credential from a request.
type Converter func(r *http.Request) (Credential, error)

// maxOAuthBody bounds how much of an OAuth login body is read.
const maxOAuthBody = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// UsernamePasswordConverter reads the username and password request
// parameters. The username must look like an email address; a missing
// password is passed on as "" so the provider rejects it.
func UsernamePasswordConverter(usernameKey, passwordKey string) Converter {
	return func(r *http.Request) (Credential, error) {
		username := strings.TrimSpace(r.FormValue(usernameKey))
		if err := validate.Var(username, "required,email"); err != nil {
			return nil, newError(KindInvalidUsernameFormat, MsgInvalidEmail, err)
		}

		return UsernamePassword{
			Username: username,
			Password: r.FormValue(passwordKey),
		}, nil
	}
}

type oauthRequest struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
}

// OAuthCodeConverter decodes {"provider": ..., "code": ...} from the body.
func OAuthCodeConverter() Converter {
	return func(r *http.Request) (Credential, error) {
		if r.Body == nil {
			return nil, newError(KindInvalidRequest, MsgUnreadableBody, nil)
		}

		var req oauthRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxOAuthBody)).Decode(&req); err != nil {
			return nil, newError(KindInvalidRequest, MsgUnreadableBody, err)
		}

		provider := strings.TrimSpace(req.Provider)
		code := strings.TrimSpace(req.Code)
		if provider == "" {
			return nil, newError(KindInvalidRequest, MsgProviderMissing, nil)
		}
		if code == "" {
			return nil, newError(KindInvalidRequest, MsgCodeMissing, nil)
		}

		return OAuthCode{Provider: provider, Code: code}, nil
	}
}

// RefreshTokenConverter reads the refresh token cookie.
func RefreshTokenConverter(cookieName string) Converter {
	return func(r *http.Request) (Credential, error) {
		c, err := r.Cookie(cookieName)
		if err != nil || strings.TrimSpace(c.Value) == "" {
			return nil, newError(KindMissingRefreshToken, MsgAbnormalRequest, err)
		}
		return RefreshToken{Token: strings.TrimSpace(c.Value)}, nil
	}
}

// BearerAccessTokenConverter strips "<prefix> " from the Authorization
// header. It never fails: an absent header or another scheme yields an empty
// token and the provider decides.
func BearerAccessTokenConverter(prefix string) Converter {
	scheme := prefix + " "
	return func(r *http.Request) (Credential, error) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, scheme) {
			return BearerAccessToken{}, nil
		}
		return BearerAccessToken{Token: strings.TrimSpace(strings.TrimPrefix(authz, scheme))}, nil
	}
}
