package handlers

import (
	"net/http"
	"time"

	"github.com/BradenHooton/riskgate/internal/auth"
	pkghttp "github.com/BradenHooton/riskgate/pkg/http"
)

// SessionResponse describes the caller's access token
type SessionResponse struct {
	Identity  string    `json:"identity"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session returns the identity behind the presented access token.
// Must be mounted behind auth.AuthMiddleware.
func Session(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	resp := SessionResponse{
		Identity: claims.Identity,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
