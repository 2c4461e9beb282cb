package sqlite

import (
	"context"
	"time"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

const createRefreshTokenSQL = `
INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
VALUES (?, ?, ?, ?, ?)
`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, createRefreshTokenSQL,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, created,
	)
	return mapConstraint(err)
}

// ConsumeRefreshToken is the rotation exclusivity point. The conditional
// delete matches on fingerprint, owner, and liveness in one statement, so
// of two concurrent rotations exactly one sees RowsAffected == 1.
func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = ? AND user_id = ? AND expires_at > ?`,
		hash, userID, time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) DeleteAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = ?`, userID,
	)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, time.Now().UTC(),
	)
	return err
}
