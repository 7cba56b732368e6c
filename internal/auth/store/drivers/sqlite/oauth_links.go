package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

type oauthLinksRepo struct {
	db dbtx
}

func (r *oauthLinksRepo) GetLink(ctx context.Context, provider, oauthID string) (domain.OAuthLink, error) {
	l := domain.OAuthLink{Provider: provider, OAuthID: oauthID}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, created_at FROM user_auth_oauth WHERE provider = ? AND oauth_id = ?`,
		provider, oauthID,
	).Scan(&l.UserID, &l.CreatedAt)
	if err != nil {
		return domain.OAuthLink{}, mapNotFound(err)
	}
	return l, nil
}

func (r *oauthLinksRepo) CreateLink(ctx context.Context, l domain.OAuthLink) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_auth_oauth (user_id, provider, oauth_id, created_at) VALUES (?, ?, ?, ?)`,
		l.UserID, l.Provider, l.OAuthID, l.CreatedAt,
	)
	return mapConstraint(err)
}
