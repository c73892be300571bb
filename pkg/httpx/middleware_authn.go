package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/plateful/auth/pkg/jwtx"
	"github.com/plateful/auth/pkg/slogx"
)

// AuthnMiddleware enforces a valid Bearer access token and injects its
// claims into the request context.
func AuthnMiddleware(v *jwtx.TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.VerifyAccess(raw)
			if err != nil {
				log.Warn("jwt verify failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, claims)))
		})
	}
}

func contextWithAuth(ctx context.Context, c jwtx.AccessClaims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.UserID)
	ctx = context.WithValue(ctx, CtxKeyUsername, c.Username)
	ctx = context.WithValue(ctx, CtxKeyAuthLevel, c.AuthLevel)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
