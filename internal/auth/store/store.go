package store

import (
	"context"
	"errors"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	DeniedTokens() DeniedTokens
	Challenges() Challenges

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh
	// rotation). The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to handle transactions.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
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
	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is already taken; the unique
	// constraint lives in the schema, not application code, so concurrent
	// registrations cannot race past it.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during password login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// UpdateTOTPSecret stores a freshly generated TOTP secret without
	// activating two-factor auth.
	UpdateTOTPSecret(ctx context.Context, userID string, secret string) error

	// EnableTwoFactor marks 2FA as active (sets the totp_enabled timestamp).
	EnableTwoFactor(ctx context.Context, userID string) error

	// DisableTwoFactor clears both the secret and the activation timestamp.
	DisableTwoFactor(ctx context.Context, userID string) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new ledger row.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// ConsumeRefreshToken deletes the live row matching both the token
	// fingerprint and the owning user, returning whether a row was deleted.
	// A false return means the token was never issued or was already rotated
	// (replay). The conditional delete is the rotation exclusivity point:
	// of two concurrent rotations only one observes a matched row.
	ConsumeRefreshToken(ctx context.Context, hash, userID string) (bool, error)

	// DeleteAllUserRefreshTokens bulk-deletes every row owned by the user (logout).
	DeleteAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping, not correctness.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type DeniedTokens interface {
	// InsertDeniedToken records a logged-out access token. Idempotent:
	// re-inserting the same fingerprint is harmless.
	InsertDeniedToken(ctx context.Context, t domain.DeniedToken) error

	// IsDenied reports whether the fingerprint has been invalidated.
	IsDenied(ctx context.Context, hash string) (bool, error)

	// DeleteExpiredDeniedTokens purges rows past their copied expiry.
	// Purging is an optimization; an expired entry's token fails expiry
	// verification regardless.
	DeleteExpiredDeniedTokens(ctx context.Context) error
}

type Challenges interface {
	// CreateChallenge stores a pending two-factor step-up challenge.
	CreateChallenge(ctx context.Context, ch domain.TwoFactorChallenge) error

	// GetChallenge retrieves a challenge by its token, only if not expired.
	GetChallenge(ctx context.Context, id string) (domain.TwoFactorChallenge, error)

	// IncrementChallengeAttempts bumps the failed attempt counter and
	// returns the updated challenge.
	IncrementChallengeAttempts(ctx context.Context, id string) (domain.TwoFactorChallenge, error)

	// DeleteChallenge removes a challenge, returning whether a row was
	// deleted. Single-use consumption hinges on this being conditional:
	// a second consumer observes false.
	DeleteChallenge(ctx context.Context, id string) (bool, error)

	// DeleteExpiredChallenges is housekeeping; reads already filter expiry.
	DeleteExpiredChallenges(ctx context.Context) error
}
