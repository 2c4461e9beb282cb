package http

import (
	"net/http"

	"github.com/halcyonlabs/gatehouse/internal/auth/service"
	"github.com/halcyonlabs/gatehouse/pkg/authapi"
	"github.com/halcyonlabs/gatehouse/pkg/httpx"
	"github.com/halcyonlabs/gatehouse/pkg/slogx"
)

// LogoutHandler denylists the presented access token and revokes every
// refresh token the user holds. Registered for both GET and POST; clients
// in the wild do either.
type LogoutHandler struct {
	Tokens *service.TokenService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	token, expiry, tok := httpx.AccessTokenFromContext(ctx)
	if !ok || !tok {
		authapi.ErrMissingAccessToken.WriteError(w)
		return
	}

	if err := h.Tokens.Revoke(ctx, token, userID, expiry); err != nil {
		slogx.FromContext(ctx).Error("logout failed", "user_id", userID, "err", err)
		authapi.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
