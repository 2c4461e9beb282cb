package sqlite

import (
	"context"
	"time"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
)

type deniedTokensRepo struct {
	db dbtx
}

// InsertDeniedToken is idempotent. Logging out twice with the same access
// token must not fail, hence INSERT OR IGNORE on the fingerprint key.
func (r *deniedTokensRepo) InsertDeniedToken(ctx context.Context, t domain.DeniedToken) error {
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO denied_tokens (token_hash, user_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?)`,
		t.TokenHash, t.UserID, t.ExpiresAt, created,
	)
	return err
}

func (r *deniedTokensRepo) IsDenied(ctx context.Context, hash string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM denied_tokens WHERE token_hash = ?)`, hash,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

func (r *deniedTokensRepo) DeleteExpiredDeniedTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM denied_tokens WHERE expires_at <= ?`, time.Now().UTC(),
	)
	return err
}
