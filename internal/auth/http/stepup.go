package http

import (
	"net/http"

	"github.com/plateful/auth/internal/auth/service"
	"github.com/plateful/auth/pkg/httpx"
	"github.com/plateful/auth/pkg/slogx"
)

// StepUpRequest selects a verification method and carries its payload.
type StepUpRequest struct {
	AuthMethod string `json:"auth_method"` // "two_factor" or "biometric"
	Code       string `json:"code"`
}

// HandleStepUp godoc
//
//	@Summary		Elevate the session's auth level
//	@Description	Runs the requested verification (TOTP or biometric) and,
//	@Description	on success, re-issues the token pair at the elevated
//	@Description	level. The previous refresh token is blacklisted.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		StepUpRequest	true	"verification attempt"
//	@Success		200		{object}	TokenResponse
//	@Failure		401		{object}	map[string]string	"verification failed"
//	@Failure		429		{object}	map[string]string	"rate limited"
//	@Router			/v1/auth/step-up [post]
func (h *SessionHandler) HandleStepUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req StepUpRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	pair, err := h.Sessions.StepUp(ctx, service.StepUpParams{
		UserID:       claims.UserID,
		Method:       req.AuthMethod,
		Code:         req.Code,
		RefreshToken: refreshTokenFromRequest(r),
	})
	if err != nil {
		if isTokenError(err) {
			clearRefreshCookie(w)
		}
		writeServiceError(w, log, err)
		return
	}

	setRefreshCookie(w, pair.RefreshToken, h.Sessions.RefreshTTL)
	httpx.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   pair.ExpiresIn,
		AuthLevel:   pair.AuthLevel,
	})
}
