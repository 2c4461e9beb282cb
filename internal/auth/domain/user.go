package domain

import "time"

type User struct {
	ID           string
	Name         string
	Email        string     // unique, enforced at the store level
	PasswordHash string     // argon2id encoded
	Role         Role       // closed enumeration, defaults to member
	TOTPEnabled  *time.Time // when two-factor auth was activated (nullable)
	TOTPSecret   *string    // base32 TOTP secret, present once enrolled (nullable)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TwoFactorEnabled reports whether the user has completed 2FA activation.
func (u User) TwoFactorEnabled() bool {
	return u.TOTPEnabled != nil && u.TOTPSecret != nil && *u.TOTPSecret != ""
}
