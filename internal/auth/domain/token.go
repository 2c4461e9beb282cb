package domain

import "time"

// TokenPair is what a completed authentication hands back: the short-lived
// access token and the single-use refresh token, both signed JWTs.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration // access token lifetime
}

// RefreshToken models a row in the refresh token ledger. Exactly one live
// row exists per issued, not-yet-rotated refresh token; rotation deletes it
// and inserts a replacement in the same transaction.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // SHA-256 fingerprint of the token value
	ExpiresAt time.Time
	CreatedAt time.Time
}

// DeniedToken records an access token invalidated by logout before its
// natural expiry. ExpiresAt is copied from the token's own exp claim; the
// row only needs to survive until then.
type DeniedToken struct {
	TokenHash string // SHA-256 fingerprint of the token value
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
