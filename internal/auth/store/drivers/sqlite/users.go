package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const selectUser = `
SELECT id, email, name, authorities, account_expired, locked, disabled,
       last_login_at, created_at, updated_at
FROM users`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u           domain.User
		authorities string
		lastLogin   sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &authorities,
		&u.AccountExpired, &u.Locked, &u.Disabled,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Authorities = splitAuthorities(authorities)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE email = ?`, email))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	if len(u.Authorities) == 0 {
		u.Authorities = domain.DefaultAuthorities
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, email, name, authorities, account_expired, locked, disabled, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, joinAuthorities(u.Authorities),
		u.AccountExpired, u.Locked, u.Disabled, u.CreatedAt, u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT password_hash FROM user_auth_local WHERE user_id = ?`, userID,
	).Scan(&hash)
	if err != nil {
		return "", mapNotFound(err)
	}
	return hash, nil
}

func (r *usersRepo) SetPasswordHash(ctx context.Context, userID, hash string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO user_auth_local (user_id, password_hash, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    password_hash = excluded.password_hash,
    updated_at = excluded.updated_at`,
		userID, hash, time.Now().UTC(),
	)
	return err
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), userID,
	))
}

func (r *usersRepo) UpdateStatus(ctx context.Context, userID string, expired, locked, disabled bool) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET account_expired = ?, locked = ?, disabled = ?, updated_at = ? WHERE id = ?`,
		expired, locked, disabled, time.Now().UTC(), userID,
	))
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
