package domain

import "time"

// TwoFactorChallenge is a pending step-up login: the password check passed
// but the TOTP code has not been presented yet. The ID doubles as the
// high-entropy challenge token handed to the client. Single-use; expires
// after a fixed TTL with no further action.
type TwoFactorChallenge struct {
	ID        string // high-entropy challenge token
	UserID    string
	Attempts  int // failed code attempts; the challenge dies at the cap
	CreatedAt time.Time
	ExpiresAt time.Time
}

// TwoFactorEnrollment is returned when a user generates a new TOTP secret.
// The secret is not active until a first code is validated.
type TwoFactorEnrollment struct {
	Secret     string // base32 secret
	OtpauthURL string // otpauth:// provisioning URI
	QRCodePNG  []byte // rendered provisioning QR code
}
