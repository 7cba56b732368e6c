// Package kakao implements the Kakao OAuth authorization code flow.
package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/aussiebroadwan/tollgate/internal/auth/oauth"
)

const (
	Provider = "kakao"

	DefaultAuthURL = "https://kauth.kakao.com"
	DefaultAPIURL  = "https://kapi.kakao.com"
	DefaultTimeout = 5 * time.Second

	placeholderDomain = "kakao.placeholder"
	defaultNickname   = "kakao_user"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	APIURL       string
	Timeout      time.Duration
}

type Client struct {
	oauth *oauth2.Config
	http  *http.Client
	api   string
}

func New(cfg Config) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   strings.TrimSuffix(cfg.AuthURL, "/") + "/oauth/authorize",
				TokenURL:  strings.TrimSuffix(cfg.AuthURL, "/") + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http: &http.Client{Timeout: cfg.Timeout},
		api:  strings.TrimSuffix(cfg.APIURL, "/"),
	}
}

func (c *Client) Name() string { return Provider }

// Exchange trades an authorization code for a Kakao access token.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	tok, err := c.oauth.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode != "" {
			return "", fmt.Errorf("%w: %s %s", oauth.ErrExchangeFailed, re.ErrorCode, re.ErrorDescription)
		}
		return "", fmt.Errorf("%w: %w", oauth.ErrExchangeFailed, err)
	}
	return tok.AccessToken, nil
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

type userResponse struct {
	ID      int64 `json:"id"`
	Account struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func (c *Client) Profile(ctx context.Context, accessToken string) (oauth.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.api+"/v2/user/me", http.NoBody)
	if err != nil {
		return oauth.Profile{}, fmt.Errorf("%w: %w", oauth.ErrProfileFailed, err)
	}

	api := c.oauth.Client(c.withHTTPClient(ctx), &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	api.Timeout = c.http.Timeout
	var body userResponse
	if err := decode(api, req, &body); err != nil {
		return oauth.Profile{}, fmt.Errorf("%w: %w", oauth.ErrProfileFailed, err)
	}
	if body.ID == 0 {
		return oauth.Profile{}, fmt.Errorf("%w: response has no id", oauth.ErrProfileFailed)
	}

	id := strconv.FormatInt(body.ID, 10)
	p := oauth.Profile{
		Provider: Provider,
		ID:       id,
		Email:    body.Account.Email,
		Name:     body.Account.Profile.Nickname,
	}
	if p.Email == "" {
		p.Email = id + "@" + placeholderDomain
	}
	if p.Name == "" {
		p.Name = defaultNickname
	}
	return p, nil
}

func decode(client *http.Client, req *http.Request, target any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.Unmarshal(b, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
