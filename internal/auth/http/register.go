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

type RegisterHandler struct {
	Sessions *service.SessionService
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authapi.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authapi.ErrValidation.WriteError(w)
		return
	}

	user, err := h.Sessions.Register(ctx, req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			authapi.ErrValidation.WriteError(w)
		case errors.Is(err, service.ErrEmailTaken):
			authapi.ErrEmailTaken.WriteError(w)
		default:
			slogx.FromContext(ctx).Error("registration failed", "err", err)
			authapi.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authapi.RegisterResponse{
		ID:      user.ID,
		Message: "User registered successfully",
	})
}
