package http

import (
	"net/http"

	"github.com/plateful/auth/pkg/httpx"
	"github.com/plateful/auth/pkg/slogx"
)

// HandleRefresh godoc
//
//	@Summary		Refresh the access token
//	@Description	Reads the refresh cookie, rotates the refresh token
//	@Description	(blacklisting the old one), and returns a new access
//	@Description	token. On any token failure the cookie is cleared so the
//	@Description	client stops retrying a dead session.
//	@Tags			Sessions
//	@Produce		json
//	@Success		200	{object}	TokenResponse
//	@Failure		401	{object}	map[string]string	"invalid, expired, or revoked token"
//	@Router			/v1/auth/refresh [post]
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	pair, err := h.Sessions.Refresh(ctx, refreshTokenFromRequest(r))
	if err != nil {
		if isTokenError(err) {
			clearRefreshCookie(w)
		}
		writeServiceError(w, log, err)
		return
	}

	// Rotation disabled leaves the existing cookie in place.
	if pair.RefreshToken != "" {
		setRefreshCookie(w, pair.RefreshToken, h.Sessions.RefreshTTL)
	}

	httpx.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   pair.ExpiresIn,
	})
}
