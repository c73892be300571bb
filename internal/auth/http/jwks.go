package http

import (
	"net/http"

	"github.com/plateful/auth/pkg/httpx"
	"github.com/plateful/auth/pkg/jwtx"
)

// JWKSHandler godoc
//
//	@Summary		JSON Web Key Set
//	@Description	Public verification keys for all active signing keys.
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	jwtx.JWKS
//	@Router			/.well-known/jwks.json [get]
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.PublicJWKS())
	}
}
