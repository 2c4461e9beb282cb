package service

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
	"github.com/halcyonlabs/gatehouse/internal/auth/store"
	"github.com/halcyonlabs/gatehouse/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const qrCodeSize = 256 // px, square

// TwoFactorService manages TOTP enrollment. A generated secret is inert
// until the user proves possession by validating a first code.
type TwoFactorService struct {
	Store  store.Store
	Issuer string // issuer label shown in authenticator apps
}

// Enroll generates a fresh TOTP secret for the user and renders the
// provisioning QR code. 2FA stays off until Activate succeeds.
func (s *TwoFactorService) Enroll(ctx context.Context, userID string) (domain.TwoFactorEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.TwoFactorEnrollment{}, err
	}
	if user.TwoFactorEnabled() {
		return domain.TwoFactorEnrollment{}, ErrTOTPAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.TwoFactorEnrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return domain.TwoFactorEnrollment{}, fmt.Errorf("failed to render QR code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return domain.TwoFactorEnrollment{}, fmt.Errorf("failed to encode QR code: %w", err)
	}

	if err := s.Store.Users().UpdateTOTPSecret(ctx, userID, key.Secret()); err != nil {
		return domain.TwoFactorEnrollment{}, fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	slogx.FromContext(ctx).Info("totp enrollment started", slog.String("user_id", userID))

	return domain.TwoFactorEnrollment{
		Secret:     key.Secret(),
		OtpauthURL: key.URL(),
		QRCodePNG:  buf.Bytes(),
	}, nil
}

// Activate turns 2FA on once the user presents a valid code for the
// enrolled secret.
func (s *TwoFactorService) Activate(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		return ErrTOTPNotEnabled
	}
	if user.TwoFactorEnabled() {
		return ErrTOTPAlreadyEnabled
	}

	if !totp.Validate(code, *user.TOTPSecret) {
		return ErrInvalidTOTPCode
	}

	if err := s.Store.Users().EnableTwoFactor(ctx, userID); err != nil {
		return fmt.Errorf("failed to enable 2fa: %w", err)
	}

	slogx.FromContext(ctx).Info("totp activated", slog.String("user_id", userID))
	return nil
}

// Disable turns 2FA off. A valid current code is required so a hijacked
// session cannot silently weaken the account.
func (s *TwoFactorService) Disable(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled() {
		return ErrTOTPNotEnabled
	}

	if !totp.Validate(code, *user.TOTPSecret) {
		return ErrInvalidTOTPCode
	}

	if err := s.Store.Users().DisableTwoFactor(ctx, userID); err != nil {
		return fmt.Errorf("failed to disable 2fa: %w", err)
	}

	slogx.FromContext(ctx).Info("totp disabled", slog.String("user_id", userID))
	return nil
}
