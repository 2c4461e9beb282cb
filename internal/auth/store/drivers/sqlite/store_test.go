package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
	"github.com/halcyonlabs/gatehouse/internal/auth/store"
	"github.com/halcyonlabs/gatehouse/pkg/cryptox"
	"github.com/halcyonlabs/gatehouse/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestUser(t *testing.T, s *Store) domain.User {
	t.Helper()

	u := domain.User{
		ID:           idx.New().String(),
		Name:         "Alice",
		Email:        idx.New().String() + "@example.com",
		PasswordHash: "argon2id:dummy",
		Role:         domain.RoleMember,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("create and fetch by id and email", func(t *testing.T) {
		u := newTestUser(t, s)

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, got.Email)
		require.Equal(t, domain.RoleMember, got.Role)
		require.False(t, got.TwoFactorEnabled())

		byEmail, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		u := newTestUser(t, s)

		dup := domain.User{
			ID:           idx.New().String(),
			Name:         "Bob",
			Email:        u.Email,
			PasswordHash: "argon2id:dummy",
			Role:         domain.RoleMember,
		}
		err := s.Users().CreateUser(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := s.Users().GetUserByID(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("totp lifecycle", func(t *testing.T) {
		u := newTestUser(t, s)

		require.NoError(t, s.Users().UpdateTOTPSecret(ctx, u.ID, "JBSWY3DPEHPK3PXP"))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.TOTPSecret)
		// A stored secret alone does not count as enabled.
		require.False(t, got.TwoFactorEnabled())

		require.NoError(t, s.Users().EnableTwoFactor(ctx, u.ID))
		got, err = s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.TwoFactorEnabled())

		require.NoError(t, s.Users().DisableTwoFactor(ctx, u.ID))
		got, err = s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.TwoFactorEnabled())
		require.Nil(t, got.TOTPSecret)
		require.Nil(t, got.TOTPEnabled)
	})
}

func TestRefreshTokensRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("consume deletes exactly once", func(t *testing.T) {
		u := newTestUser(t, s)
		hash := cryptox.FingerprintToken(cryptox.MustGenerateToken(cryptox.TokenSize256))

		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    u.ID,
			TokenHash: hash,
			ExpiresAt: time.Now().Add(time.Hour),
		}))

		ok, err := s.RefreshTokens().ConsumeRefreshToken(ctx, hash, u.ID)
		require.NoError(t, err)
		require.True(t, ok)

		// Second consume of the same fingerprint is a replay.
		ok, err = s.RefreshTokens().ConsumeRefreshToken(ctx, hash, u.ID)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("consume requires matching owner", func(t *testing.T) {
		u := newTestUser(t, s)
		other := newTestUser(t, s)
		hash := cryptox.FingerprintToken(cryptox.MustGenerateToken(cryptox.TokenSize256))

		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    u.ID,
			TokenHash: hash,
			ExpiresAt: time.Now().Add(time.Hour),
		}))

		ok, err := s.RefreshTokens().ConsumeRefreshToken(ctx, hash, other.ID)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("expired rows cannot be consumed", func(t *testing.T) {
		u := newTestUser(t, s)
		hash := cryptox.FingerprintToken(cryptox.MustGenerateToken(cryptox.TokenSize256))

		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    u.ID,
			TokenHash: hash,
			ExpiresAt: time.Now().Add(-time.Minute),
		}))

		ok, err := s.RefreshTokens().ConsumeRefreshToken(ctx, hash, u.ID)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, s.RefreshTokens().DeleteExpiredRefreshTokens(ctx))
	})

	t.Run("delete all revokes every session", func(t *testing.T) {
		u := newTestUser(t, s)
		var hashes []string
		for range 3 {
			hash := cryptox.FingerprintToken(cryptox.MustGenerateToken(cryptox.TokenSize256))
			hashes = append(hashes, hash)
			require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
				ID:        idx.New().String(),
				UserID:    u.ID,
				TokenHash: hash,
				ExpiresAt: time.Now().Add(time.Hour),
			}))
		}

		require.NoError(t, s.RefreshTokens().DeleteAllUserRefreshTokens(ctx, u.ID))

		for _, hash := range hashes {
			ok, err := s.RefreshTokens().ConsumeRefreshToken(ctx, hash, u.ID)
			require.NoError(t, err)
			require.False(t, ok)
		}
	})
}

func TestDeniedTokensRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := newTestUser(t, s)
	hash := cryptox.FingerprintToken("some.access.token")

	denied, err := s.DeniedTokens().IsDenied(ctx, hash)
	require.NoError(t, err)
	require.False(t, denied)

	row := domain.DeniedToken{
		TokenHash: hash,
		UserID:    u.ID,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, s.DeniedTokens().InsertDeniedToken(ctx, row))

	// Logout is idempotent; the second insert must not error.
	require.NoError(t, s.DeniedTokens().InsertDeniedToken(ctx, row))

	denied, err = s.DeniedTokens().IsDenied(ctx, hash)
	require.NoError(t, err)
	require.True(t, denied)

	t.Run("purge removes expired rows only", func(t *testing.T) {
		expiredHash := cryptox.FingerprintToken("expired.access.token")
		require.NoError(t, s.DeniedTokens().InsertDeniedToken(ctx, domain.DeniedToken{
			TokenHash: expiredHash,
			UserID:    u.ID,
			ExpiresAt: time.Now().Add(-time.Minute),
		}))

		require.NoError(t, s.DeniedTokens().DeleteExpiredDeniedTokens(ctx))

		denied, err := s.DeniedTokens().IsDenied(ctx, expiredHash)
		require.NoError(t, err)
		require.False(t, denied)

		denied, err = s.DeniedTokens().IsDenied(ctx, hash)
		require.NoError(t, err)
		require.True(t, denied)
	})
}

func TestChallengesRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("round trip and attempts", func(t *testing.T) {
		u := newTestUser(t, s)
		ch := domain.TwoFactorChallenge{
			ID:        cryptox.MustGenerateToken(cryptox.TokenSize256),
			UserID:    u.ID,
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}
		require.NoError(t, s.Challenges().CreateChallenge(ctx, ch))

		got, err := s.Challenges().GetChallenge(ctx, ch.ID)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.UserID)
		require.Zero(t, got.Attempts)

		got, err = s.Challenges().IncrementChallengeAttempts(ctx, ch.ID)
		require.NoError(t, err)
		require.Equal(t, 1, got.Attempts)
	})

	t.Run("expired challenge reads as missing", func(t *testing.T) {
		u := newTestUser(t, s)
		ch := domain.TwoFactorChallenge{
			ID:        cryptox.MustGenerateToken(cryptox.TokenSize256),
			UserID:    u.ID,
			ExpiresAt: time.Now().Add(-time.Second),
		}
		require.NoError(t, s.Challenges().CreateChallenge(ctx, ch))

		_, err := s.Challenges().GetChallenge(ctx, ch.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete is single use", func(t *testing.T) {
		u := newTestUser(t, s)
		ch := domain.TwoFactorChallenge{
			ID:        cryptox.MustGenerateToken(cryptox.TokenSize256),
			UserID:    u.ID,
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}
		require.NoError(t, s.Challenges().CreateChallenge(ctx, ch))

		ok, err := s.Challenges().DeleteChallenge(ctx, ch.ID)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.Challenges().DeleteChallenge(ctx, ch.ID)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := newTestUser(t, s)

	hash := cryptox.FingerprintToken(cryptox.MustGenerateToken(cryptox.TokenSize256))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	boom := context.Canceled
	err := s.WithTx(ctx, func(tx store.Tx) error {
		ok, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, hash, u.ID)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The delete above must have been rolled back.
	ok, err := s.RefreshTokens().ConsumeRefreshToken(ctx, hash, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
}
