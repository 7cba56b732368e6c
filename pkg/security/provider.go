package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// Provider verifies one credential variant.
type Provider interface {
	Supports(kind CredentialKind) bool
	Authenticate(ctx context.Context, cred Credential) (Outcome, error)
}

// ProviderSet dispatches a credential to the single provider that declared
// support for its kind.
type ProviderSet struct {
	providers []Provider
}

// NewProviderSet fails if two providers claim the same credential kind.
func NewProviderSet(providers ...Provider) (*ProviderSet, error) {
	for _, kind := range credentialKinds {
		claimed := 0
		for _, p := range providers {
			if p.Supports(kind) {
				claimed++
			}
		}
		if claimed > 1 {
			return nil, fmt.Errorf("security: %d providers support %s", claimed, kind)
		}
	}
	return &ProviderSet{providers: providers}, nil
}

// MustProviderSet is like NewProviderSet but panics on a duplicate claim.
func MustProviderSet(providers ...Provider) *ProviderSet {
	ps, err := NewProviderSet(providers...)
	if err != nil {
		panic(err)
	}
	return ps
}

func (ps *ProviderSet) find(kind CredentialKind) Provider {
	for _, p := range ps.providers {
		if p.Supports(kind) {
			return p
		}
	}
	return nil
}

// Authenticate runs the matching provider. Anything a provider returns that
// is not an *Error, including panics and context cancellation, is logged
// and replaced with a generic service error.
func (ps *ProviderSet) Authenticate(ctx context.Context, cred Credential) (out Outcome, err error) {
	log := slogx.FromContext(ctx)

	p := ps.find(cred.Kind())
	if p == nil {
		log.Error("no authentication provider registered", "credential", cred.Kind().String())
		return nil, ServiceError(fmt.Errorf("no provider for %s", cred.Kind()))
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("authentication provider panicked", "credential", cred.Kind().String(), "panic", rec)
			out, err = nil, ServiceError(fmt.Errorf("panic: %v", rec))
		}
	}()

	out, err = p.Authenticate(ctx, cred)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		var se *Error
		if errors.As(err, &se) && se.Kind != KindServiceError {
			return nil, se
		}
		log.Error("unknown authentication error", "credential", cred.Kind().String(), "error", err)
		if se != nil {
			return nil, se
		}
		return nil, ServiceError(err)
	}

	if out == nil {
		log.Error("authentication provider returned no outcome", "credential", cred.Kind().String())
		return nil, ServiceError(errors.New("nil outcome"))
	}

	return out, nil
}
