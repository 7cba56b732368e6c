package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// refreshLeeway renews the access token slightly before it expires.
const refreshLeeway = 30 * time.Second

// Session represents an authenticated session with automatic token refresh.
// All Session methods automatically handle token expiration and refresh when needed.
type Session struct {
	client *SDKClient

	mu     sync.RWMutex
	tokens TokenSet
}

func newSession(client *SDKClient, tokens TokenSet) (*Session, error) {
	if tokens.IsEmpty() {
		return nil, ErrSessionExpired
	}
	if tokens.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	return &Session{client: client, tokens: tokens}, nil
}

// NewSessionFromTokens creates a session from tokens obtained elsewhere.
// The session still refreshes the access token when it expires.
func (c *SDKClient) NewSessionFromTokens(tokens TokenSet) *Session {
	return &Session{client: c, tokens: tokens}
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	now := s.client.Now()

	s.mu.RLock()
	if now.Before(s.tokens.AccessExpiresAt.Add(-refreshLeeway)) {
		token := s.tokens.AccessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if now.Before(s.tokens.AccessExpiresAt.Add(-refreshLeeway)) {
		return s.tokens.AccessToken, nil
	}

	if s.tokens.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	tokens, err := s.client.Refresh(ctx, s.tokens.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.tokens = tokens

	return s.tokens.AccessToken, nil
}

// doAuthRequest performs an HTTP request carrying the session's bearer token.
func (s *Session) doAuthRequest(ctx context.Context, method, path string) (*http.Response, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.doRequest(ctx, method, path, nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// Me returns the user behind the session.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, s.client.MePath)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeEnvelope(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Refresh forces an access token refresh.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.client.Refresh(ctx, s.tokens.RefreshToken)
	if err != nil {
		return err
	}
	s.tokens = tokens
	return nil
}

// Tokens returns a copy of the current tokens.
func (s *Session) Tokens() TokenSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.RefreshToken
}
