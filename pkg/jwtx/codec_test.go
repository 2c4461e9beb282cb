package jwtx

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testCodec() *Codec {
	return &Codec{
		Issuer:        "gatehouse-test",
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	c := testCodec()

	for _, purpose := range []Purpose{PurposeAccess, PurposeRefresh} {
		t.Run(string(purpose), func(t *testing.T) {
			token, issued, err := c.Issue(purpose, "user-123")
			require.NoError(t, err)
			require.NotEmpty(t, token)
			require.Equal(t, purpose, issued.Purpose)

			claims, err := c.Verify(purpose, token)
			require.NoError(t, err)
			require.Equal(t, "user-123", claims.UserID())
			require.Equal(t, "gatehouse-test", claims.Issuer)
			require.WithinDuration(t, issued.ExpiresAt.Time, claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestIssueMintsDistinctTokens(t *testing.T) {
	c := testCodec()

	// The registered time claims only have second granularity. Two tokens
	// minted back to back for the same user must still differ, otherwise a
	// rotated refresh token would hash to the same ledger row it replaced.
	first, firstClaims, err := c.Issue(PurposeRefresh, "user-123")
	require.NoError(t, err)
	second, secondClaims, err := c.Issue(PurposeRefresh, "user-123")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.NotEmpty(t, firstClaims.ID)
	require.NotEmpty(t, secondClaims.ID)
	require.NotEqual(t, firstClaims.ID, secondClaims.ID)
}

func TestVerifyRejectsCrossPurposePresentation(t *testing.T) {
	c := testCodec()

	refresh, _, err := c.Issue(PurposeRefresh, "user-123")
	require.NoError(t, err)
	_, err = c.Verify(PurposeAccess, refresh)
	require.ErrorIs(t, err, ErrMalformed)

	access, _, err := c.Issue(PurposeAccess, "user-123")
	require.NoError(t, err)
	_, err = c.Verify(PurposeRefresh, access)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyDistinguishesExpiredFromMalformed(t *testing.T) {
	c := testCodec()

	t.Run("expired", func(t *testing.T) {
		expired := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    c.Issuer,
				Subject:   "user-123",
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
			Purpose: PurposeAccess,
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).
			SignedString(c.AccessSecret)
		require.NoError(t, err)

		_, err = c.Verify(PurposeAccess, token)
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := c.Verify(PurposeAccess, "not.a.jwt")
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("wrong signature", func(t *testing.T) {
		other := testCodec()
		other.AccessSecret = []byte("a completely different secret")

		token, _, err := other.Issue(PurposeAccess, "user-123")
		require.NoError(t, err)

		_, err = c.Verify(PurposeAccess, token)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, _, err := c.Issue(PurposeAccess, "")
		require.NoError(t, err)

		_, err = c.Verify(PurposeAccess, token)
		require.ErrorIs(t, err, ErrMalformed)
	})
}

func TestTTLDefaults(t *testing.T) {
	c := &Codec{}
	require.Equal(t, DefaultAccessTokenTTL, c.TTL(PurposeAccess))
	require.Equal(t, DefaultRefreshTokenTTL, c.TTL(PurposeRefresh))

	c.AccessTTL = 5 * time.Minute
	c.RefreshTTL = 48 * time.Hour
	require.Equal(t, 5*time.Minute, c.TTL(PurposeAccess))
	require.Equal(t, 48*time.Hour, c.TTL(PurposeRefresh))
}
