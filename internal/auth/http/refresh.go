package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/halcyonlabs/gatehouse/internal/auth/service"
	"github.com/halcyonlabs/gatehouse/pkg/authapi"
	"github.com/halcyonlabs/gatehouse/pkg/httpx"
	"github.com/halcyonlabs/gatehouse/pkg/slogx"
)

type RefreshHandler struct {
	Tokens *service.TokenService
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authapi.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		authapi.ErrRefreshTokenInvalid.WriteError(w)
		return
	}

	pair, err := h.Tokens.Rotate(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			// Expired, malformed, unknown, and replayed tokens all land here;
			// distinguishing them would only help an attacker.
			authapi.ErrRefreshTokenInvalid.WriteError(w)
			return
		}
		slogx.FromContext(ctx).Error("refresh rotation failed", "err", err)
		authapi.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authapi.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}
