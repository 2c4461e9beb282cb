package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailTaken         = errors.New("email_taken")
	ErrValidation         = errors.New("validation_failed")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrTokenDenied        = errors.New("token_denied")
	ErrInvalidTOTPCode    = errors.New("invalid TOTP code")
	ErrTOTPNotEnabled     = errors.New("TOTP not enabled for this user")
	ErrTOTPAlreadyEnabled = errors.New("TOTP already enabled for this user")
	ErrChallengeInvalid   = errors.New("invalid_challenge_token")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
)

// TwoFactorRequiredError is returned from password login when the account
// has 2FA active. It is not a failure: it carries the step-up challenge the
// client must answer with a TOTP code to finish logging in.
type TwoFactorRequiredError struct {
	ChallengeToken string
	ExpiresAt      time.Time
}

func (e *TwoFactorRequiredError) Error() string {
	return fmt.Sprintf("two-factor code required (challenge expires %s)", e.ExpiresAt.Format(time.RFC3339))
}
