package http

import (
	"net/http"

	"github.com/plateful/auth/pkg/slogx"
)

// HandleLogout godoc
//
//	@Summary		End the session
//	@Description	Blacklists the refresh token's jti when the cookie is
//	@Description	present and decodable, and always clears the cookie.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Success		205	"session ended"
//	@Failure		401	"missing or invalid access token"
//	@Router			/v1/auth/logout [post]
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.Sessions.Logout(ctx, refreshTokenFromRequest(r)); err != nil {
		writeServiceError(w, log, err)
		return
	}

	clearRefreshCookie(w)
	w.WriteHeader(http.StatusResetContent)
}
