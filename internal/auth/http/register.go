package http

import (
	"net/http"

	"github.com/plateful/auth/internal/auth/service"
	"github.com/plateful/auth/pkg/httpx"
	"github.com/plateful/auth/pkg/slogx"
)

// RegisterRequest is the registration body. Profile fields are optional.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Address     string `json:"address,omitempty"`
	Allergies   string `json:"allergies,omitempty"`
}

// HandleRegister godoc
//
//	@Summary		Register a new account
//	@Description	Creates the user, profile, and auth level state, then
//	@Description	issues a level-1 token pair. The refresh token is set as
//	@Description	an HttpOnly cookie.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RegisterRequest	true	"registration details"
//	@Success		201		{object}	TokenResponse
//	@Failure		400		{object}	map[string]string	"validation failure or duplicate"
//	@Failure		429		{object}	map[string]string	"rate limited"
//	@Router			/v1/auth/register [post]
func (h *SessionHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, pair, err := h.Sessions.Register(ctx, service.RegisterParams{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		Allergies:   req.Allergies,
		UserAgent:   r.UserAgent(),
		IP:          httpx.ClientIP(r),
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	setRefreshCookie(w, pair.RefreshToken, h.Sessions.RefreshTTL)
	httpx.WriteJSON(w, http.StatusCreated, TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   pair.ExpiresIn,
		User:        summarize(user),
	})
}
