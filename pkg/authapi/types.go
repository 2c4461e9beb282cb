package authapi

import "time"

// RegisterRequest is the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// Role is optional and defaults to "member" when empty.
	Role string `json:"role,omitempty"`
}

// RegisterResponse is returned with 201 on successful registration.
type RegisterResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned when login completes without a second factor.
type LoginResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TwoFactorChallengeResponse is returned instead of tokens when the account
// has two-factor authentication enabled. The challenge token must be
// presented to the validate endpoint before it expires.
type TwoFactorChallengeResponse struct {
	TwoFactorRequired bool      `json:"two_factor_required"` // always true
	ChallengeToken    string    `json:"challenge_token"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// ValidateTwoFactorRequest is the body of POST /api/v1/auth/2fa/validate.
// ChallengeToken is set for the login step-up flow; it is omitted when an
// authenticated user is activating a freshly generated secret.
type ValidateTwoFactorRequest struct {
	ChallengeToken string `json:"challenge_token,omitempty"`
	Code           string `json:"totp"`
}

// DisableTwoFactorRequest is the body of POST /api/v1/auth/2fa/disable.
type DisableTwoFactorRequest struct {
	Code string `json:"totp"`
}

// RefreshTokenRequest is the body of POST /api/v1/auth/refresh-token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenPairResponse carries a freshly issued access/refresh pair.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"` // always "Bearer"
	ExpiresIn    int    `json:"expires_in"` // access token lifetime, seconds
}

// CurrentUserResponse is returned by GET /api/v1/users/current.
type CurrentUserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// MessageResponse is a plain informational body.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by the livez and readyz probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks carries per-dependency readiness detail.
type HealthChecks struct {
	Database string `json:"database"`
}
