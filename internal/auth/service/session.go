package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
	"github.com/halcyonlabs/gatehouse/internal/auth/store"
	"github.com/halcyonlabs/gatehouse/pkg/cryptox"
	"github.com/halcyonlabs/gatehouse/pkg/idx"
	"github.com/halcyonlabs/gatehouse/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

const (
	// MaxTwoFactorAttempts is the number of failed TOTP codes a step-up
	// challenge survives before it is destroyed.
	MaxTwoFactorAttempts = 5

	// DefaultChallengeTTL bounds how long a password-verified login may wait
	// for its TOTP code.
	DefaultChallengeTTL = 5 * time.Minute

	minPasswordLength = 6
)

// SessionService implements registration and the login protocol, including
// the two-factor step-up leg.
type SessionService struct {
	Store  store.Store
	Tokens *TokenService

	// ChallengeTTL overrides DefaultChallengeTTL when positive.
	ChallengeTTL time.Duration
}

func (s *SessionService) challengeTTL() time.Duration {
	if s.ChallengeTTL > 0 {
		return s.ChallengeTTL
	}
	return DefaultChallengeTTL
}

// Register creates a new account. The role is optional and falls back to
// member; unknown role names also fall back rather than erroring.
func (s *SessionService) Register(ctx context.Context, name, email, password, role string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return domain.User{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); email == "" || err != nil {
		return domain.User{}, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if len(password) < minPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	u := domain.User{
		ID:           idx.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.ParseRole(role),
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	slogx.FromContext(ctx).Info("user registered",
		slog.String("user_id", u.ID),
		slog.String("role", u.Role.String()),
	)
	return u, nil
}

// Login verifies the password. Accounts without 2FA get a token pair
// immediately; accounts with 2FA active get a *TwoFactorRequiredError
// carrying a single-use challenge instead.
func (s *SessionService) Login(ctx context.Context, email, password string) (domain.User, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash so an unknown email costs the same as a wrong password.
			_, _ = cryptox.HashPassword(password)
			return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("password login failed", slog.String("user_id", user.ID))
		return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled() {
		ch := domain.TwoFactorChallenge{
			ID:        cryptox.MustGenerateToken(cryptox.TokenSize256),
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(s.challengeTTL()),
		}
		if err := s.Store.Challenges().CreateChallenge(ctx, ch); err != nil {
			return domain.User{}, domain.TokenPair{}, fmt.Errorf("failed to create challenge: %w", err)
		}

		l.Info("two-factor step-up issued", slog.String("user_id", user.ID))
		return domain.User{}, domain.TokenPair{}, &TwoFactorRequiredError{
			ChallengeToken: ch.ID,
			ExpiresAt:      ch.ExpiresAt,
		}
	}

	pair, err := s.Tokens.IssuePair(ctx, user.ID)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	l.Info("user logged in", slog.String("user_id", user.ID))
	return user, pair, nil
}

// CompleteTwoFactorLogin answers a step-up challenge with a TOTP code.
// The challenge is single-use: it is consumed in the same transaction that
// issues the tokens, and dies after MaxTwoFactorAttempts bad codes.
func (s *SessionService) CompleteTwoFactorLogin(ctx context.Context, challengeToken, code string) (domain.User, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	ch, err := s.Store.Challenges().GetChallenge(ctx, challengeToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.TokenPair{}, ErrChallengeInvalid
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if ch.Attempts >= MaxTwoFactorAttempts {
		_, _ = s.Store.Challenges().DeleteChallenge(ctx, ch.ID)
		return domain.User{}, domain.TokenPair{}, ErrTooManyAttempts
	}

	user, err := s.Store.Users().GetUserByID(ctx, ch.UserID)
	if err != nil || !user.TwoFactorEnabled() {
		_, _ = s.Store.Challenges().DeleteChallenge(ctx, ch.ID)
		return domain.User{}, domain.TokenPair{}, ErrChallengeInvalid
	}

	if !totp.Validate(code, *user.TOTPSecret) {
		updated, err := s.Store.Challenges().IncrementChallengeAttempts(ctx, ch.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.TokenPair{}, err
		}
		l.Info("two-factor code rejected",
			slog.String("user_id", user.ID),
			slog.Int("attempts", updated.Attempts),
		)
		if updated.Attempts >= MaxTwoFactorAttempts {
			_, _ = s.Store.Challenges().DeleteChallenge(ctx, ch.ID)
			return domain.User{}, domain.TokenPair{}, ErrTooManyAttempts
		}
		return domain.User{}, domain.TokenPair{}, ErrInvalidTOTPCode
	}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		ok, err := tx.Challenges().DeleteChallenge(ctx, ch.ID)
		if err != nil {
			return err
		}
		if !ok {
			// A concurrent validation already consumed it.
			return ErrChallengeInvalid
		}

		pair, err = s.Tokens.issuePair(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	l.Info("two-factor login completed", slog.String("user_id", user.ID))
	return user, pair, nil
}
