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

// TwoFactorValidateHandler serves both legs of POST /auth/2fa/validate:
//
//   - a challenge_token in the body finishes a step-up login and returns a
//     full token pair;
//   - no challenge_token means an authenticated user is activating a freshly
//     generated secret, which requires the bearer token instead.
type TwoFactorValidateHandler struct {
	Sessions  *service.SessionService
	TwoFactor *service.TwoFactorService
}

func (h *TwoFactorValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authapi.ValidateTwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		authapi.ErrValidation.WriteError(w)
		return
	}

	if req.ChallengeToken != "" {
		h.completeLogin(w, r, req)
		return
	}
	h.activate(w, r, req)
}

func (h *TwoFactorValidateHandler) completeLogin(w http.ResponseWriter, r *http.Request, req authapi.ValidateTwoFactorRequest) {
	ctx := r.Context()

	user, pair, err := h.Sessions.CompleteTwoFactorLogin(ctx, req.ChallengeToken, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeInvalid):
			authapi.ErrChallengeInvalid.WriteError(w)
		case errors.Is(err, service.ErrInvalidTOTPCode):
			authapi.ErrInvalidTwoFactorCode.WriteError(w)
		case errors.Is(err, service.ErrTooManyAttempts):
			authapi.ErrTooManyTwoFactorAttempts.WriteError(w)
		default:
			slogx.FromContext(ctx).Error("two-factor login failed", "err", err)
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

func (h *TwoFactorValidateHandler) activate(w http.ResponseWriter, r *http.Request, req authapi.ValidateTwoFactorRequest) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		authapi.ErrMissingAccessToken.WriteError(w)
		return
	}

	if err := h.TwoFactor.Activate(ctx, userID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrTOTPNotEnabled):
			authapi.ErrTwoFactorNotEnabled.WriteError(w)
		case errors.Is(err, service.ErrTOTPAlreadyEnabled):
			authapi.ErrTwoFactorAlreadyEnabled.WriteError(w)
		case errors.Is(err, service.ErrInvalidTOTPCode):
			authapi.ErrInvalidTwoFactorCode.WriteError(w)
		default:
			slogx.FromContext(ctx).Error("two-factor activation failed", "user_id", userID, "err", err)
			authapi.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authapi.MessageResponse{
		Message: "Two-factor authentication enabled",
	})
}

// TwoFactorGenerateHandler serves GET /auth/2fa/generate: it enrolls (or
// re-enrolls) a pending TOTP secret and answers with the provisioning QR
// code as a PNG. The otpauth URL rides a response header for clients that
// prefer manual entry.
type TwoFactorGenerateHandler struct {
	TwoFactor *service.TwoFactorService
}

func (h *TwoFactorGenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		authapi.ErrMissingAccessToken.WriteError(w)
		return
	}

	enrollment, err := h.TwoFactor.Enroll(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTOTPAlreadyEnabled):
			authapi.ErrTwoFactorAlreadyEnabled.WriteError(w)
		default:
			slogx.FromContext(ctx).Error("two-factor enrollment failed", "user_id", userID, "err", err)
			authapi.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Otpauth-Url", enrollment.OtpauthURL)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(enrollment.QRCodePNG)
}

// TwoFactorDisableHandler serves POST /auth/2fa/disable. A valid current
// code is required.
type TwoFactorDisableHandler struct {
	TwoFactor *service.TwoFactorService
}

func (h *TwoFactorDisableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		authapi.ErrMissingAccessToken.WriteError(w)
		return
	}

	var req authapi.DisableTwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		authapi.ErrValidation.WriteError(w)
		return
	}

	if err := h.TwoFactor.Disable(ctx, userID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrTOTPNotEnabled):
			authapi.ErrTwoFactorNotEnabled.WriteError(w)
		case errors.Is(err, service.ErrInvalidTOTPCode):
			authapi.ErrInvalidTwoFactorCode.WriteError(w)
		default:
			slogx.FromContext(ctx).Error("two-factor disable failed", "user_id", userID, "err", err)
			authapi.ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
