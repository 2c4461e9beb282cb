package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short-lived access tokens limit the damage window of a
// leaked token; refresh tokens live longer for user convenience.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Purpose marks what a token may be used for. Access and refresh tokens are
// signed with different secrets AND carry their purpose as a claim, so one
// can never be presented where the other is expected.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
)

var (
	// ErrMalformed covers bad structure, bad signature, and purpose mismatch.
	ErrMalformed = errors.New("jwtx: malformed token")
	// ErrExpired is returned when a structurally valid token is past its exp.
	// Callers surface this separately so clients know a refresh may succeed.
	ErrExpired = errors.New("jwtx: token expired")
)

// Claims are the signed payload of both token kinds.
type Claims struct {
	jwt.RegisteredClaims

	// Purpose distinguishes access from refresh tokens.
	Purpose Purpose `json:"prp"`
}

// UserID returns the subject claim, which carries the owning user's ID.
func (c Claims) UserID() string { return c.Subject }

// Codec signs and verifies purpose-bound bearer tokens. It is a pure function
// of its configuration; it holds no per-request state and is safe for
// concurrent use.
type Codec struct {
	Issuer        string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TTL returns the configured lifetime for the given purpose.
func (c *Codec) TTL(p Purpose) time.Duration {
	if p == PurposeRefresh {
		if c.RefreshTTL > 0 {
			return c.RefreshTTL
		}
		return DefaultRefreshTokenTTL
	}
	if c.AccessTTL > 0 {
		return c.AccessTTL
	}
	return DefaultAccessTokenTTL
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. The
// registered time claims have second granularity, so without it two tokens
// minted for the same user within a second would be byte-identical.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

func (c *Codec) secret(p Purpose) []byte {
	if p == PurposeRefresh {
		return c.RefreshSecret
	}
	return c.AccessSecret
}

// Issue signs a token of the given purpose for userID. The returned Claims
// carry the computed expiry so callers can persist or report it.
func (c *Codec) Issue(p Purpose, userID string) (string, Claims, error) {
	now := time.Now().UTC()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(p))),
			ID:        NewJTI(),
		},
		Purpose: p,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret(p))
	if err != nil {
		return "", Claims{}, err
	}
	return token, claims, nil
}

// Verify checks signature, structure, expiry, and purpose. It fails with
// ErrExpired when the token is past its exp claim and ErrMalformed for
// everything else; the two drive different client-visible response codes.
func (c *Codec) Verify(p Purpose, token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (any, error) { return c.secret(p), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrMalformed
	}

	if claims.Purpose != p {
		return Claims{}, ErrMalformed
	}
	if claims.Subject == "" {
		return Claims{}, ErrMalformed
	}

	return claims, nil
}
