package http

import (
	"net/http"

	"github.com/plateful/auth/internal/auth/service"
	"github.com/plateful/auth/pkg/httpx"
	"github.com/plateful/auth/pkg/slogx"
)

// LoginRequest carries login credentials. Username may also be an email
// address.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin godoc
//
//	@Summary		Authenticate with credentials
//	@Description	Verifies username (or email) and password, resets any
//	@Description	prior step-up elevation, and issues a fresh level-1 token
//	@Description	pair with the refresh token in an HttpOnly cookie.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoginRequest	true	"credentials"
//	@Success		200		{object}	TokenResponse
//	@Failure		401		{object}	map[string]string	"invalid credentials"
//	@Failure		429		{object}	map[string]string	"rate limited"
//	@Router			/v1/auth/login [post]
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, pair, err := h.Sessions.Login(ctx, service.LoginParams{
		Identifier: req.Username,
		Password:   req.Password,
		UserAgent:  r.UserAgent(),
		IP:         httpx.ClientIP(r),
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	setRefreshCookie(w, pair.RefreshToken, h.Sessions.RefreshTTL)
	httpx.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   pair.ExpiresIn,
		User:        summarize(user),
	})
}
