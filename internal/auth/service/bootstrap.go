package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

var ErrBootstrapAlready = errors.New("system already bootstrapped")

// AdminAuthorities are granted to the bootstrap admin.
var AdminAuthorities = []string{"ROLE_ADMIN", "ROLE_USER"}

// BootstrapService seeds the first administrator into an empty database.
type BootstrapService struct {
	Users *UserService
}

// BootstrapResult reports the created admin. Password is only set when it
// was generated and must be shown to the operator once.
type BootstrapResult struct {
	User     domain.User
	Password string
}

// Bootstrap creates the admin when no user exists yet. An empty password is
// replaced by a generated one.
func (s *BootstrapService) Bootstrap(ctx context.Context, email, name, password string) (BootstrapResult, error) {
	l := slogx.FromContext(ctx)

	empty, err := s.Users.Store.Users().IsEmpty(ctx)
	if err != nil {
		return BootstrapResult{}, err
	}
	if !empty {
		return BootstrapResult{}, ErrBootstrapAlready
	}

	var generated string
	if password == "" {
		generated, err = cryptox.GeneratePassword()
		if err != nil {
			return BootstrapResult{}, err
		}
		password = generated
	}
	if name == "" {
		name = "admin"
	}

	u, err := s.Users.Register(ctx, RegisterInput{
		Email:       email,
		Name:        name,
		Password:    password,
		Authorities: AdminAuthorities,
	})
	if err != nil {
		l.Error("failed to create admin user", slog.Any("error", err))
		return BootstrapResult{}, err
	}

	l.Info("successfully bootstrapped system", slog.String("admin_user_id", u.ID))
	return BootstrapResult{User: u, Password: generated}, nil
}
