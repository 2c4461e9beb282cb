package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const createUserSQL = `
INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	if !u.CreatedAt.IsZero() {
		now = u.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, createUserSQL,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role.String(), now, now,
	)
	return mapConstraint(err)
}

const getUserSQL = `
SELECT id, name, email, password_hash, role, totp_secret, totp_enabled, created_at, updated_at
FROM users
`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, getUserSQL+`WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, getUserSQL+`WHERE email = ?`, email))
}

func (r *usersRepo) UpdateTOTPSecret(ctx context.Context, userID string, secret string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = ?, updated_at = ? WHERE id = ?`,
		secret, time.Now().UTC(), userID,
	)
	return err
}

func (r *usersRepo) EnableTwoFactor(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_enabled = ?, updated_at = ? WHERE id = ?`,
		now, now, userID,
	)
	return err
}

func (r *usersRepo) DisableTwoFactor(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = NULL, totp_enabled = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	return err
}

func (r *usersRepo) scanUser(row *sql.Row) (domain.User, error) {
	var (
		u           domain.User
		role        string
		totpSecret  sql.NullString
		totpEnabled sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role,
		&totpSecret, &totpEnabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.ParseRole(role)
	u.TOTPSecret = mapNullString(totpSecret)
	u.TOTPEnabled = mapNullTime(totpEnabled)
	return u, nil
}
