package http

import (
	"net/http"

	"github.com/plateful/auth/pkg/httpx"
	"github.com/plateful/auth/pkg/slogx"
)

// UserInfoResponse combines the account summary with the durable auth
// level state.
type UserInfoResponse struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	AuthLevel         int    `json:"auth_level"`
	TwoFactorVerified bool   `json:"two_factor_verified"`
	BiometricVerified bool   `json:"biometric_verified"`
}

// HandleUserInfo godoc
//
//	@Summary		Current user details
//	@Description	Returns the authenticated user's account summary and
//	@Description	verification state.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	UserInfoResponse
//	@Failure		401	{object}	map[string]string
//	@Router			/v1/userinfo [get]
func (h *SessionHandler) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, level, err := h.Sessions.UserInfo(ctx, httpx.UserIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, UserInfoResponse{
		ID:                user.ID,
		Username:          user.Username,
		Email:             user.Email,
		AuthLevel:         level.CurrentLevel,
		TwoFactorVerified: level.TwoFactorVerified,
		BiometricVerified: level.BiometricVerified,
	})
}
