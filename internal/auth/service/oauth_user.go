package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/oauth"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/idx"
	"github.com/aussiebroadwan/tollgate/pkg/security"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// ProfileResolver turns a provider code into a profile. oauth.Registry
// satisfies it.
type ProfileResolver interface {
	Resolve(ctx context.Context, provider, code string) (oauth.Profile, error)
}

// OAuthUserService signs in users through upstream providers, creating the
// local user and its link the first time an identity shows up.
type OAuthUserService struct {
	Store     store.Store
	Providers ProfileResolver
}

var _ security.OAuthUserLoader = (*OAuthUserService)(nil)

func (s *OAuthUserService) FindOrCreateExternalIdentity(ctx context.Context, provider, code string) (*security.Account, error) {
	l := slogx.FromContext(ctx)

	profile, err := s.Providers.Resolve(ctx, provider, code)
	if err != nil {
		return nil, err
	}

	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		link, err := tx.OAuthLinks().GetLink(ctx, profile.Provider, profile.ID)
		switch {
		case err == nil:
			user, err = tx.Users().GetUserByID(ctx, link.UserID)
			return err
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		user = domain.User{
			ID:    idx.New().String(),
			Email: profile.Email,
			Name:  profile.Name,
		}
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return fmt.Errorf("%w: %s", ErrEmailTaken, profile.Email)
			}
			return err
		}
		if err := tx.OAuthLinks().CreateLink(ctx, domain.OAuthLink{
			UserID:   user.ID,
			Provider: profile.Provider,
			OAuthID:  profile.ID,
		}); err != nil {
			return err
		}

		l.Info("user created from external identity",
			slog.String("user_id", user.ID),
			slog.String("provider", profile.Provider),
		)
		user, err = tx.Users().GetUserByID(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return accountFor(user, ""), nil
}
