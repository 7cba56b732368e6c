package security

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// Envelope is the JSON shape of every response the pipeline writes itself.
type Envelope struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// BearerBody is the content of a token response. The refresh token is left
// out on purpose; it only travels in a cookie.
type BearerBody struct {
	AccessToken          *string `json:"accessToken"`
	AccessTokenExpiresIn *string `json:"accessTokenExpiresIn"`
}

// NewBearerBody renders pair with its access expiry in loc. An empty pair
// renders both fields as null.
func NewBearerBody(pair BearerTokenPair, loc *time.Location) BearerBody {
	if pair.AccessToken == "" {
		return BearerBody{}
	}
	token := pair.AccessToken
	expires := pair.AccessTokenExpiresAt.In(loc).Format(jwtx.ExpiryLayout)
	return BearerBody{AccessToken: &token, AccessTokenExpiresIn: &expires}
}

// Success wraps content in a 200 envelope.
func Success(content any) Envelope {
	return Envelope{
		Success: true,
		Code:    http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Content: content,
	}
}

// Failure builds a failed envelope.
func Failure(code int, message string) Envelope {
	return Envelope{Success: false, Code: code, Message: message}
}
