package authapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/halcyonlabs/gatehouse/pkg/httpx"
)

// Machine-readable error codes surfaced alongside 401 responses so clients
// can decide whether refreshing the access token is worth attempting.
const (
	CodeAccessTokenExpired = "ACCESS_TOKEN_EXPIRED"
	CodeAccessTokenInvalid = "ACCESS_TOKEN_INVALID"
)

// APIError is the error envelope returned by every failing endpoint.
// It implements the error interface and can be used both by the server
// (to write HTTP responses) and by clients (to represent errors).
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Message is a human-readable description of the error
	Message string `json:"message"`

	// Code is an optional machine-readable code (token expiry vs invalidity)
	Code string `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

var (
	// ErrValidation is returned when a required request field is missing.
	ErrValidation = &APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Message:    "Please fill in all the required fields",
	}

	// ErrEmailTaken is returned when registering with an email already in use.
	ErrEmailTaken = &APIError{
		StatusCode: http.StatusConflict,
		Message:    "Email already exists",
	}

	// ErrInvalidCredentials deliberately does not reveal whether the email or
	// the password was wrong.
	ErrInvalidCredentials = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Email or password is invalid",
	}

	// ErrMissingAccessToken is returned when no Authorization header is present.
	ErrMissingAccessToken = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Access token not found",
	}

	// ErrAccessTokenExpired signals the client should try a refresh.
	ErrAccessTokenExpired = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Access token expired",
		Code:       CodeAccessTokenExpired,
	}

	// ErrAccessTokenInvalid covers malformed and logged-out access tokens.
	ErrAccessTokenInvalid = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Access token invalid",
		Code:       CodeAccessTokenInvalid,
	}

	// ErrRefreshTokenInvalid covers expired, malformed, and replayed refresh
	// tokens; they are indistinguishable on purpose.
	ErrRefreshTokenInvalid = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Refresh token invalid or expired",
	}

	// ErrForbidden is returned when the caller's role is not allowed in.
	ErrForbidden = &APIError{
		StatusCode: http.StatusForbidden,
		Message:    "Access denied",
	}

	// ErrTwoFactorNotEnabled is returned when a 2FA operation targets a user
	// with no secret configured.
	ErrTwoFactorNotEnabled = &APIError{
		StatusCode: http.StatusBadRequest,
		Message:    "Two-factor authentication is not enabled",
	}

	// ErrInvalidTwoFactorCode is returned on a TOTP mismatch.
	ErrInvalidTwoFactorCode = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Invalid two-factor authentication code",
	}

	// ErrTwoFactorAlreadyEnabled is returned when enrollment is attempted on
	// an account with 2FA already active.
	ErrTwoFactorAlreadyEnabled = &APIError{
		StatusCode: http.StatusBadRequest,
		Message:    "Two-factor authentication is already enabled",
	}

	// ErrTooManyTwoFactorAttempts is returned once a challenge has burned
	// through its allowed code attempts. The challenge is gone; the client
	// must log in again.
	ErrTooManyTwoFactorAttempts = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Too many invalid two-factor attempts, please log in again",
	}

	// ErrChallengeInvalid is returned when a step-up challenge handle is
	// unknown, already consumed, or past its TTL.
	ErrChallengeInvalid = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Two-factor challenge invalid or expired",
	}

	// ErrServerError is the catch-all for collaborator failures; internals
	// never cross the boundary.
	ErrServerError = &APIError{
		StatusCode: http.StatusInternalServerError,
		Message:    "Internal server error",
	}
)
