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

type LoginHandler struct {
	Sessions *service.SessionService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authapi.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		authapi.ErrValidation.WriteError(w)
		return
	}

	user, pair, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		var challenge *service.TwoFactorRequiredError
		switch {
		case errors.As(err, &challenge):
			// Password accepted; the login now hinges on the TOTP code.
			httpx.NoCache(w)
			httpx.WriteJSON(w, http.StatusOK, authapi.TwoFactorChallengeResponse{
				TwoFactorRequired: true,
				ChallengeToken:    challenge.ChallengeToken,
				ExpiresAt:         challenge.ExpiresAt,
			})
		case errors.Is(err, service.ErrInvalidCredentials):
			authapi.ErrInvalidCredentials.WriteError(w)
		default:
			slogx.FromContext(ctx).Error("login failed", "err", err)
			authapi.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authapi.LoginResponse{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}
