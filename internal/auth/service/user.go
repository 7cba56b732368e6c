package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/idx"
	"github.com/aussiebroadwan/tollgate/pkg/security"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

var (
	ErrEmailTaken       = errors.New("email already registered")
	ErrInvalidUserInput = errors.New("invalid user input")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// PasswordHasher encodes new passwords. cryptox.Hasher satisfies it.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// RegisterInput is validated before any write.
type RegisterInput struct {
	Email       string   `validate:"required,email,max=254"`
	Name        string   `validate:"required,max=100"`
	Password    string   `validate:"required,min=8,max=72"`
	Authorities []string `validate:"dive,required"`
}

// UserService backs the login, refresh and authorization stages with the
// user store. Users are identified by email.
type UserService struct {
	Store     store.Store
	Passwords PasswordHasher
}

var (
	_ security.UserLoader        = (*UserService)(nil)
	_ security.LastLoginRecorder = (*UserService)(nil)
)

// FindUserByIdentifier loads the account for a login email or token subject.
func (s *UserService) FindUserByIdentifier(ctx context.Context, identifier string) (*security.Account, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", security.ErrUserNotFound, identifier)
		}
		return nil, err
	}

	hash, err := s.Store.Users().GetPasswordHash(ctx, u.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return accountFor(u, hash), nil
}

// RecordLastLogin stamps the user behind identifier.
func (s *UserService) RecordLastLogin(ctx context.Context, identifier string, at time.Time) error {
	u, err := s.Store.Users().GetUserByEmail(ctx, identifier)
	if err != nil {
		return fmt.Errorf("find user %s: %w", identifier, err)
	}
	return s.Store.Users().UpdateLastLogin(ctx, u.ID, at)
}

// GetUserByEmail fetches a user by email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.Store.Users().GetUserByEmail(ctx, email)
}

// Register creates a user with a local password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	l := slogx.FromContext(ctx)

	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return domain.User{}, fmt.Errorf("%w: %w", ErrInvalidUserInput, err)
	}

	hash, err := s.Passwords.Hash(in.Password)
	if err != nil {
		l.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	u := domain.User{
		ID:          idx.New().String(),
		Email:       in.Email,
		Name:        in.Name,
		Authorities: in.Authorities,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return tx.Users().SetPasswordHash(ctx, u.ID, hash)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.User{}, ErrEmailTaken
	}
	if err != nil {
		return domain.User{}, err
	}

	l.Info("user registered", slog.String("user_id", u.ID))
	return s.Store.Users().GetUserByID(ctx, u.ID)
}

func accountFor(u domain.User, passwordHash string) *security.Account {
	return &security.Account{
		Username:     u.Email,
		PasswordHash: passwordHash,
		Authorities:  u.Authorities,
		Expired:      u.AccountExpired,
		Locked:       u.Locked,
		Disabled:     u.Disabled,
		User:         u,
	}
}
