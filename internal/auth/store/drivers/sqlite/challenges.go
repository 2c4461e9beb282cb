package sqlite

import (
	"context"
	"time"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
)

type challengesRepo struct {
	db dbtx
}

const createChallengeSQL = `
INSERT INTO two_factor_challenges (id, user_id, attempts, created_at, expires_at)
VALUES (?, ?, ?, ?, ?)
`

func (r *challengesRepo) CreateChallenge(ctx context.Context, ch domain.TwoFactorChallenge) error {
	created := ch.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, createChallengeSQL,
		ch.ID, ch.UserID, ch.Attempts, created, ch.ExpiresAt,
	)
	return mapConstraint(err)
}

const getChallengeSQL = `
SELECT id, user_id, attempts, created_at, expires_at
FROM two_factor_challenges
WHERE id = ? AND expires_at > ?
`

// GetChallenge filters expiry at read time so a stale row behaves exactly
// like a purged one, regardless of housekeeping cadence.
func (r *challengesRepo) GetChallenge(ctx context.Context, id string) (domain.TwoFactorChallenge, error) {
	var ch domain.TwoFactorChallenge
	err := r.db.QueryRowContext(ctx, getChallengeSQL, id, time.Now().UTC()).Scan(
		&ch.ID, &ch.UserID, &ch.Attempts, &ch.CreatedAt, &ch.ExpiresAt,
	)
	if err != nil {
		return domain.TwoFactorChallenge{}, mapNotFound(err)
	}
	return ch, nil
}

func (r *challengesRepo) IncrementChallengeAttempts(ctx context.Context, id string) (domain.TwoFactorChallenge, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE two_factor_challenges SET attempts = attempts + 1 WHERE id = ?`, id,
	)
	if err != nil {
		return domain.TwoFactorChallenge{}, err
	}
	return r.GetChallenge(ctx, id)
}

// DeleteChallenge reports whether a row was actually removed, making the
// challenge single-use under concurrent validation.
func (r *challengesRepo) DeleteChallenge(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM two_factor_challenges WHERE id = ?`, id,
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

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM two_factor_challenges WHERE expires_at <= ?`, time.Now().UTC(),
	)
	return err
}
