package http

import (
	"net/http"

	"github.com/halcyonlabs/gatehouse/pkg/authapi"
	"github.com/halcyonlabs/gatehouse/pkg/httpx"
)

// RoleAreaHandler answers the role-gated demonstration routes. The actual
// gating lives in the RequireRole middleware; by the time this runs the
// caller is already cleared.
type RoleAreaHandler struct {
	Greeting string
}

func (h *RoleAreaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authapi.MessageResponse{Message: h.Greeting})
}
