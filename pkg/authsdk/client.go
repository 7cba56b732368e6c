package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// Default endpoint layout of the service.
const (
	DefaultLoginPath     = "/v1/auth/login"
	DefaultOAuthPath     = "/v1/auth/oauth"
	DefaultRefreshPath   = "/v1/auth/refresh"
	DefaultRefreshCookie = "refresh_token"
	DefaultMePath        = "/v1/users/me"
)

// SDKClient is a client for the tollgate authentication service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	LoginPath     string
	OAuthPath     string
	RefreshPath   string
	MePath        string
	RefreshCookie string

	// UsernameParam and PasswordParam name the login form fields.
	UsernameParam string
	PasswordParam string

	// Location is the zone the service formats expiry times in.
	Location *time.Location

	// Now is used for expiry bookkeeping; defaults to time.Now.
	Now func() time.Time
}

// NewSDKClient creates a client with the service's default layout.
func NewSDKClient(baseURL string) *SDKClient {
	loc, err := time.LoadLocation(jwtx.DefaultZone)
	if err != nil {
		loc = time.UTC
	}
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		LoginPath:     DefaultLoginPath,
		OAuthPath:     DefaultOAuthPath,
		RefreshPath:   DefaultRefreshPath,
		MePath:        DefaultMePath,
		RefreshCookie: DefaultRefreshCookie,
		UsernameParam: "email",
		PasswordParam: "password",
		Location:      loc,
		Now:           time.Now,
	}
}

// TokenSet is what the service hands out on a successful login or refresh.
type TokenSet struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// IsEmpty reports whether the service answered with null tokens, which it
// does for an expired refresh token.
func (t TokenSet) IsEmpty() bool { return t.AccessToken == "" }

// Login authenticates with email and password and returns a session.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	form := url.Values{
		c.UsernameParam: {email},
		c.PasswordParam: {password},
	}
	resp, err := c.doRequest(ctx, http.MethodPost, c.LoginPath, strings.NewReader(form.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	if err != nil {
		return nil, err
	}

	tokens, err := c.readTokens(resp)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens)
}

// LoginWithOAuth signs in with an authorization code from provider.
func (c *SDKClient) LoginWithOAuth(ctx context.Context, provider, code string) (*Session, error) {
	body, err := json.Marshal(OAuthLoginRequest{Provider: provider, Code: code})
	if err != nil {
		return nil, err
	}
	resp, err := c.doRequest(ctx, http.MethodPost, c.OAuthPath, bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}

	tokens, err := c.readTokens(resp)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens)
}

// Refresh exchanges refreshToken for a new access token. An expired refresh
// token yields ErrSessionExpired.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(c.RefreshPath), http.NoBody)
	if err != nil {
		return TokenSet{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: c.RefreshCookie, Value: refreshToken})

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return TokenSet{}, fmt.Errorf("failed to send request: %w", err)
	}

	tokens, err := c.readTokens(resp)
	if err != nil {
		return TokenSet{}, err
	}
	if tokens.IsEmpty() {
		return TokenSet{}, ErrSessionExpired
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

func (c *SDKClient) readTokens(resp *http.Response) (TokenSet, error) {
	var content TokenContent
	if err := decodeEnvelope(resp, &content); err != nil {
		return TokenSet{}, err
	}
	if content.AccessToken == nil {
		return TokenSet{}, nil
	}

	tokens := TokenSet{AccessToken: *content.AccessToken}
	if content.AccessTokenExpiresIn != nil {
		exp, err := time.ParseInLocation(jwtx.ExpiryLayout, *content.AccessTokenExpiresIn, c.Location)
		if err != nil {
			return TokenSet{}, fmt.Errorf("failed to parse access token expiry: %w", err)
		}
		tokens.AccessExpiresAt = exp
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == c.RefreshCookie {
			tokens.RefreshToken = ck.Value
			tokens.RefreshExpiresAt = c.Now().Add(time.Duration(ck.MaxAge) * time.Second)
		}
	}
	return tokens, nil
}
