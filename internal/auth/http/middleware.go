package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
	"github.com/halcyonlabs/gatehouse/internal/auth/service"
	"github.com/halcyonlabs/gatehouse/pkg/authapi"
	"github.com/halcyonlabs/gatehouse/pkg/httpx"
	"github.com/halcyonlabs/gatehouse/pkg/jwtx"
	"github.com/halcyonlabs/gatehouse/pkg/slogx"
)

// bearerToken pulls the access token out of the Authorization header. The
// header value is the raw token; a conventional "Bearer " prefix is
// tolerated and stripped.
func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if after, ok := strings.CutPrefix(raw, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return raw
}

// Authn gates a route on a live access token. The token must verify as
// access-purposed, be unexpired, and not sit on the denylist. On success the
// user ID and the presented token ride the request context so logout can
// denylist exactly what was presented.
func Authn(tokens *service.TokenService) httpx.Middleware {
	return authn(tokens, true)
}

// OptionalAuthn populates the auth context when a token is present but lets
// anonymous requests through untouched. A presented-but-bad token is still
// rejected; silently ignoring it would mask client bugs.
func OptionalAuthn(tokens *service.TokenService) httpx.Middleware {
	return authn(tokens, false)
}

func authn(tokens *service.TokenService, required bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				authapi.ErrMissingAccessToken.WriteError(w)
				return
			}

			claims, err := tokens.VerifyAccess(r.Context(), token)
			if err != nil {
				writeVerifyError(w, r, err)
				return
			}

			ctx := httpx.ContextWithAuth(r.Context(), claims.UserID(), token, claims.ExpiresAt.Time)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeVerifyError maps access token verification failures onto the wire
// taxonomy. Expiry gets its own machine code so clients know a refresh is
// worth trying; everything else is terminal.
func writeVerifyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		authapi.ErrAccessTokenExpired.WriteError(w)
	case errors.Is(err, jwtx.ErrMalformed), errors.Is(err, service.ErrTokenDenied):
		authapi.ErrAccessTokenInvalid.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("access token verification failed", "err", err)
		authapi.ErrServerError.WriteError(w)
	}
}

// RequireRole allows the request through only when the authenticated user's
// stored role is in the allowed set. The role is read fresh from the store
// rather than trusted from any claim, so demotions apply immediately.
func RequireRole(users *service.UserService, allowed ...domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := httpx.UserIDFromContext(r.Context())
			if !ok {
				authapi.ErrMissingAccessToken.WriteError(w)
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				slogx.FromContext(r.Context()).Warn("failed to load user for role gate", "user_id", userID, "err", err)
				authapi.ErrForbidden.WriteError(w)
				return
			}

			if !user.Role.In(allowed...) {
				authapi.ErrForbidden.WriteError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
