package httpx

import (
	"context"

	"github.com/plateful/auth/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeyUsername  ctxKey = "username"
	CtxKeyAuthLevel ctxKey = "auth_level"
	CtxKeyClaims    ctxKey = "claims"
)

// UserIDFromContext returns the authenticated user id, or "" when the
// request never passed through AuthnMiddleware.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// AuthLevelFromContext returns the proven auth tier, defaulting to 0.
func AuthLevelFromContext(ctx context.Context) int {
	if v, ok := ctx.Value(CtxKeyAuthLevel).(int); ok {
		return v
	}
	return 0
}

// ClaimsFromContext returns the full access claims when present.
func ClaimsFromContext(ctx context.Context) (jwtx.AccessClaims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.AccessClaims)
	return c, ok
}
