package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
	"github.com/halcyonlabs/gatehouse/internal/auth/store"
	"github.com/halcyonlabs/gatehouse/pkg/cryptox"
	"github.com/halcyonlabs/gatehouse/pkg/idx"
	"github.com/halcyonlabs/gatehouse/pkg/jwtx"
	"github.com/halcyonlabs/gatehouse/pkg/slogx"
)

// TokenService owns the token lifecycle: issuing access/refresh pairs,
// rotating refresh tokens, revoking on logout, and verifying access tokens
// against the denylist.
type TokenService struct {
	Codec *jwtx.Codec
	Store store.Store
}

// IssuePair signs a fresh access/refresh pair for the user and records the
// refresh token's fingerprint in the ledger.
func (s *TokenService) IssuePair(ctx context.Context, userID string) (domain.TokenPair, error) {
	var pair domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		pair, err = s.issuePair(ctx, tx, userID)
		return err
	})
	return pair, err
}

// issuePair does the actual signing and ledger insert against the given
// store, which may be a transaction mid-rotation.
func (s *TokenService) issuePair(ctx context.Context, st store.Store, userID string) (domain.TokenPair, error) {
	access, _, err := s.Codec.Issue(jwtx.PurposeAccess, userID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, refreshClaims, err := s.Codec.Issue(jwtx.PurposeRefresh, userID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	err = st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(refresh),
		ExpiresAt: refreshClaims.ExpiresAt.Time,
	})
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to record refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.Codec.TTL(jwtx.PurposeAccess),
	}, nil
}

// Rotate exchanges a live refresh token for a new pair. The presented token
// is consumed in the same transaction that records its replacement, so a
// replayed token, or the loser of two concurrent rotations, gets nothing.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Verify(jwtx.PurposeRefresh, refreshToken)
	if err != nil {
		return domain.TokenPair{}, ErrInvalidRefresh
	}

	hash := cryptox.FingerprintToken(refreshToken)

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		ok, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, hash, claims.UserID())
		if err != nil {
			return err
		}
		if !ok {
			l.Info("refresh token replay or unknown token",
				slog.String("user_id", claims.UserID()),
			)
			return ErrInvalidRefresh
		}

		pair, err = s.issuePair(ctx, tx, claims.UserID())
		return err
	})
	if err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

// VerifyAccess validates an access token and checks it has not been revoked
// by logout. Signature/expiry errors pass through as jwtx sentinels so the
// transport can tell an expired token from a malformed one.
func (s *TokenService) VerifyAccess(ctx context.Context, accessToken string) (jwtx.Claims, error) {
	claims, err := s.Codec.Verify(jwtx.PurposeAccess, accessToken)
	if err != nil {
		return jwtx.Claims{}, err
	}

	denied, err := s.Store.DeniedTokens().IsDenied(ctx, cryptox.FingerprintToken(accessToken))
	if err != nil {
		return jwtx.Claims{}, err
	}
	if denied {
		return jwtx.Claims{}, ErrTokenDenied
	}

	return claims, nil
}

// Revoke implements logout: the presented access token is denylisted until
// its natural expiry and every refresh token the user holds is deleted.
// Idempotent; revoking an already revoked token succeeds.
func (s *TokenService) Revoke(ctx context.Context, accessToken, userID string, expiresAt time.Time) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		err := tx.DeniedTokens().InsertDeniedToken(ctx, domain.DeniedToken{
			TokenHash: cryptox.FingerprintToken(accessToken),
			UserID:    userID,
			ExpiresAt: expiresAt,
		})
		if err != nil {
			return fmt.Errorf("failed to denylist access token: %w", err)
		}

		if err := tx.RefreshTokens().DeleteAllUserRefreshTokens(ctx, userID); err != nil {
			return fmt.Errorf("failed to revoke refresh tokens: %w", err)
		}
		return nil
	})
}
