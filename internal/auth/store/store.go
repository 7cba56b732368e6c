package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this
// and expose sub-repositories so that a transaction can only be started from
// the root, never from inside another transaction.
type Store interface {
	Users() Users
	OAuthLinks() OAuthLinks

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is the lookup behind every token subject.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// GetPasswordHash returns the local credential of a user, or
	// ErrNotFound for users that only sign in through a provider.
	GetPasswordHash(ctx context.Context, userID string) (string, error)

	// SetPasswordHash creates or replaces the local credential.
	SetPasswordHash(ctx context.Context, userID, hash string) error

	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	UpdateStatus(ctx context.Context, userID string, expired, locked, disabled bool) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type OAuthLinks interface {
	// GetLink finds the link for an upstream identity.
	GetLink(ctx context.Context, provider, oauthID string) (domain.OAuthLink, error)

	// CreateLink returns ErrAlreadyExists when the identity is linked already.
	CreateLink(ctx context.Context, l domain.OAuthLink) error
}
