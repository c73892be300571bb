package http

import (
	"net/http"

	"github.com/plateful/auth/pkg/httpx"
	"github.com/plateful/auth/pkg/slogx"
)

// TOTPEnrollResponse carries the provisioning URL for authenticator apps.
type TOTPEnrollResponse struct {
	OTPAuthURL string `json:"otpauth_url"`
}

// HandleTOTPEnroll godoc
//
//	@Summary		Enroll in two-factor authentication
//	@Description	Generates and stores a TOTP secret for the authenticated
//	@Description	user and returns the otpauth provisioning URL.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	TOTPEnrollResponse
//	@Failure		401	{object}	map[string]string
//	@Router			/v1/auth/totp/enroll [post]
func (h *SessionHandler) HandleTOTPEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	url, err := h.Sessions.EnrollTOTP(ctx, httpx.UserIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, TOTPEnrollResponse{OTPAuthURL: url})
}
