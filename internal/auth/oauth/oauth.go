// Package oauth resolves authorization codes issued by upstream identity
// providers into provider profiles.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownProvider = errors.New("oauth: unknown provider")
	ErrExchangeFailed  = errors.New("oauth: code exchange failed")
	ErrProfileFailed   = errors.New("oauth: profile lookup failed")
)

// Profile is what a provider tells us about the user behind a code.
type Profile struct {
	Provider string
	ID       string
	Email    string
	Name     string
}

// Client talks to one upstream provider.
type Client interface {
	// Name is the provider key used in requests, lower case.
	Name() string
	// Exchange trades an authorization code for a provider access token.
	Exchange(ctx context.Context, code string) (string, error)
	// Profile fetches the profile for a provider access token.
	Profile(ctx context.Context, accessToken string) (Profile, error)
}

// Registry maps provider names to clients. It is read-only once built.
type Registry struct {
	clients map[string]Client
}

// NewRegistry indexes clients by name. Names are case-insensitive and must
// be unique.
func NewRegistry(clients ...Client) (*Registry, error) {
	r := &Registry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		name := strings.ToLower(c.Name())
		if _, dup := r.clients[name]; dup {
			return nil, fmt.Errorf("oauth: provider %q registered twice", name)
		}
		r.clients[name] = c
	}
	return r, nil
}

// Lookup returns the client for provider.
func (r *Registry) Lookup(provider string) (Client, error) {
	c, ok := r.clients[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return c, nil
}

// Resolve exchanges code with provider and returns the resulting profile.
func (r *Registry) Resolve(ctx context.Context, provider, code string) (Profile, error) {
	c, err := r.Lookup(provider)
	if err != nil {
		return Profile{}, err
	}

	token, err := c.Exchange(ctx, code)
	if err != nil {
		return Profile{}, err
	}

	p, err := c.Profile(ctx, token)
	if err != nil {
		return Profile{}, err
	}
	p.Provider = c.Name()
	return p, nil
}

// Names lists the registered providers in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.clients))
	for name := range r.clients {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
