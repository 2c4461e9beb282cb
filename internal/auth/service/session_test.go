package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
	"github.com/halcyonlabs/gatehouse/internal/auth/store/drivers/sqlite"
	"github.com/halcyonlabs/gatehouse/pkg/cryptox"
	"github.com/halcyonlabs/gatehouse/pkg/jwtx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func newTestServices(t *testing.T) (*SessionService, *TokenService, *TwoFactorService) {
	t.Helper()

	// Keep the hash cheap; these tests exercise protocol logic, not argon2.
	cryptox.SetTimeCost(1)

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec := &jwtx.Codec{
		Issuer:        "gatehouse-test",
		AccessSecret:  []byte("access-secret-access-secret-1234"),
		RefreshSecret: []byte("refresh-secret-refresh-secret-12"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}

	tokens := &TokenService{Codec: codec, Store: st}
	sessions := &SessionService{Store: st, Tokens: tokens}
	twoFactor := &TwoFactorService{Store: st, Issuer: "gatehouse-test"}
	return sessions, tokens, twoFactor
}

func registerAndLogin(t *testing.T, s *SessionService) (domain.User, domain.TokenPair) {
	t.Helper()
	ctx := context.Background()

	u, err := s.Register(ctx, "Alice", "alice-"+cryptox.MustGenerateToken(cryptox.TokenSize128)+"@example.com", "hunter22", "")
	require.NoError(t, err)

	user, pair, err := s.Login(ctx, u.Email, "hunter22")
	require.NoError(t, err)
	require.Equal(t, u.ID, user.ID)
	return user, pair
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	sessions, _, _ := newTestServices(t)

	t.Run("defaults to member role", func(t *testing.T) {
		u, err := sessions.Register(ctx, "Alice", "alice@example.com", "hunter22", "")
		require.NoError(t, err)
		require.Equal(t, domain.RoleMember, u.Role)
		require.NotEmpty(t, u.ID)
	})

	t.Run("normalizes email casing", func(t *testing.T) {
		u, err := sessions.Register(ctx, "Bob", "Bob@Example.COM", "hunter22", "admin")
		require.NoError(t, err)
		require.Equal(t, "bob@example.com", u.Email)
		require.Equal(t, domain.RoleAdmin, u.Role)

		_, _, err = sessions.Login(ctx, "BOB@example.com", "hunter22")
		require.NoError(t, err)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := sessions.Register(ctx, "Alice Again", "alice@example.com", "hunter22", "")
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := sessions.Register(ctx, "", "carol@example.com", "hunter22", "")
		require.ErrorIs(t, err, ErrValidation)

		_, err = sessions.Register(ctx, "Carol", "not-an-email", "hunter22", "")
		require.ErrorIs(t, err, ErrValidation)

		_, err = sessions.Register(ctx, "Carol", "carol@example.com", "short", "")
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown role falls back to member", func(t *testing.T) {
		u, err := sessions.Register(ctx, "Dave", "dave@example.com", "hunter22", "superuser")
		require.NoError(t, err)
		require.Equal(t, domain.RoleMember, u.Role)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	sessions, tokens, _ := newTestServices(t)

	u, err := sessions.Register(ctx, "Alice", "alice@example.com", "hunter22", "")
	require.NoError(t, err)

	t.Run("issues a verifiable pair", func(t *testing.T) {
		_, pair, err := sessions.Login(ctx, u.Email, "hunter22")
		require.NoError(t, err)

		claims, err := tokens.VerifyAccess(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, u.ID, claims.UserID())

		// A refresh token never passes the access gate.
		_, err = tokens.VerifyAccess(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, _, err := sessions.Login(ctx, u.Email, "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, _, err = sessions.Login(ctx, "nobody@example.com", "hunter22")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRotate(t *testing.T) {
	ctx := context.Background()
	sessions, tokens, _ := newTestServices(t)

	t.Run("single use", func(t *testing.T) {
		_, pair := registerAndLogin(t, sessions)

		next, err := tokens.Rotate(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

		// Replaying the consumed token fails; the replacement still works.
		_, err = tokens.Rotate(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)

		_, err = tokens.Rotate(ctx, next.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("rejects garbage and access tokens", func(t *testing.T) {
		_, pair := registerAndLogin(t, sessions)

		_, err := tokens.Rotate(ctx, "not.a.jwt")
		require.ErrorIs(t, err, ErrInvalidRefresh)

		_, err = tokens.Rotate(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("concurrent rotations have exactly one winner", func(t *testing.T) {
		_, pair := registerAndLogin(t, sessions)

		const racers = 8
		errs := make([]error, racers)
		var wg sync.WaitGroup
		for i := range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = tokens.Rotate(ctx, pair.RefreshToken)
			}()
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
			} else {
				require.ErrorIs(t, err, ErrInvalidRefresh)
			}
		}
		require.Equal(t, 1, wins)
	})
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	sessions, tokens, _ := newTestServices(t)
	_, pair := registerAndLogin(t, sessions)

	claims, err := tokens.VerifyAccess(ctx, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(ctx, pair.AccessToken, claims.UserID(), claims.ExpiresAt.Time))

	// The access token is now denylisted even though it has not expired.
	_, err = tokens.VerifyAccess(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenDenied)

	// Every refresh token the user held is gone too.
	_, err = tokens.Rotate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Revoking again is a no-op, not an error.
	require.NoError(t, tokens.Revoke(ctx, pair.AccessToken, claims.UserID(), claims.ExpiresAt.Time))
}

func TestTwoFactorLogin(t *testing.T) {
	ctx := context.Background()
	sessions, tokens, twoFactor := newTestServices(t)

	user, pair := registerAndLogin(t, sessions)

	enrollment, err := twoFactor.Enroll(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.NotEmpty(t, enrollment.QRCodePNG)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, twoFactor.Activate(ctx, user.ID, code))

	// Password alone no longer completes a login.
	_, _, err = sessions.Login(ctx, user.Email, "hunter22")
	var challenge *TwoFactorRequiredError
	require.ErrorAs(t, err, &challenge)
	require.NotEmpty(t, challenge.ChallengeToken)
	require.WithinDuration(t, time.Now().Add(DefaultChallengeTTL), challenge.ExpiresAt, 5*time.Second)

	t.Run("valid code finishes the login", func(t *testing.T) {
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)

		got, newPair, err := sessions.CompleteTwoFactorLogin(ctx, challenge.ChallengeToken, code)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)

		claims, err := tokens.VerifyAccess(ctx, newPair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.UserID())
	})

	t.Run("challenge is single use", func(t *testing.T) {
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)

		_, _, err = sessions.CompleteTwoFactorLogin(ctx, challenge.ChallengeToken, code)
		require.ErrorIs(t, err, ErrChallengeInvalid)
	})

	t.Run("unknown challenge token", func(t *testing.T) {
		_, _, err := sessions.CompleteTwoFactorLogin(ctx, "no-such-challenge", "000000")
		require.ErrorIs(t, err, ErrChallengeInvalid)
	})

	// The earlier pair predates the step-up and keeps working; logout has
	// not happened and 2FA does not retroactively revoke sessions.
	_, err = tokens.VerifyAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
}

func TestTwoFactorAttemptCap(t *testing.T) {
	ctx := context.Background()
	sessions, _, twoFactor := newTestServices(t)

	user, _ := registerAndLogin(t, sessions)

	enrollment, err := twoFactor.Enroll(ctx, user.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, twoFactor.Activate(ctx, user.ID, code))

	_, _, err = sessions.Login(ctx, user.Email, "hunter22")
	var challenge *TwoFactorRequiredError
	require.ErrorAs(t, err, &challenge)

	for i := 1; i < MaxTwoFactorAttempts; i++ {
		_, _, err := sessions.CompleteTwoFactorLogin(ctx, challenge.ChallengeToken, "000000")
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
	}

	// The cap-hitting attempt destroys the challenge.
	_, _, err = sessions.CompleteTwoFactorLogin(ctx, challenge.ChallengeToken, "000000")
	require.ErrorIs(t, err, ErrTooManyAttempts)

	// Even the right code is useless now.
	code, err = totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	_, _, err = sessions.CompleteTwoFactorLogin(ctx, challenge.ChallengeToken, code)
	require.ErrorIs(t, err, ErrChallengeInvalid)
}

func TestTwoFactorEnrollment(t *testing.T) {
	ctx := context.Background()
	sessions, _, twoFactor := newTestServices(t)
	user, _ := registerAndLogin(t, sessions)

	t.Run("activate requires enrollment", func(t *testing.T) {
		err := twoFactor.Activate(ctx, user.ID, "000000")
		require.ErrorIs(t, err, ErrTOTPNotEnabled)
	})

	t.Run("activate rejects a wrong code", func(t *testing.T) {
		_, err := twoFactor.Enroll(ctx, user.ID)
		require.NoError(t, err)

		err = twoFactor.Activate(ctx, user.ID, "000000")
		if err == nil {
			// One in a million chance the random secret yields 000000; regenerate.
			t.Skip("code collision")
		}
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
	})

	t.Run("enrolling twice rotates the pending secret", func(t *testing.T) {
		first, err := twoFactor.Enroll(ctx, user.ID)
		require.NoError(t, err)
		second, err := twoFactor.Enroll(ctx, user.ID)
		require.NoError(t, err)
		require.NotEqual(t, first.Secret, second.Secret)
	})

	t.Run("disable requires a valid code", func(t *testing.T) {
		enrollment, err := twoFactor.Enroll(ctx, user.ID)
		require.NoError(t, err)
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, twoFactor.Activate(ctx, user.ID, code))

		// Enrolling again while active is refused.
		_, err = twoFactor.Enroll(ctx, user.ID)
		require.ErrorIs(t, err, ErrTOTPAlreadyEnabled)

		err = twoFactor.Disable(ctx, user.ID, "000000")
		if !errors.Is(err, ErrInvalidTOTPCode) {
			t.Skip("code collision")
		}

		code, err = totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, twoFactor.Disable(ctx, user.ID, code))

		// Back to plain password logins.
		_, _, err = sessions.Login(ctx, user.Email, "hunter22")
		require.NoError(t, err)
	})
}
