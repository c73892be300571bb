package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/plateful/auth/pkg/httpx"
	"github.com/plateful/auth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string

	tag := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})

	chained := httpx.Chain(handler, tag("first"), tag("second"))
	chained.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	// First middleware listed is the outermost wrapper.
	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestAuthnMiddleware(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    "test-issuer",
		NumKeys:   1,
	})
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		require.Equal(t, "user-1", httpx.UserIDFromContext(ctx))
		require.Equal(t, 2, httpx.AuthLevelFromContext(ctx))

		claims, ok := httpx.ClaimsFromContext(ctx)
		require.True(t, ok)
		require.Equal(t, "alice", claims.Username)

		w.WriteHeader(http.StatusOK)
	})

	protected := httpx.AuthnMiddleware(km.Verifier)(handler)

	t.Run("valid token passes with claims in context", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("user-1", "alice", 2, "test-issuer", nil, time.Minute, time.Now().UTC())
		token, err := km.GetSigner().Sign(claims)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh token is rejected as access token", func(t *testing.T) {
		claims := jwtx.NewRefreshClaims("user-1", "alice", "dev", "ip", "fp", time.Now().Unix(), 1, "test-issuer", nil, time.Hour, time.Now().UTC())
		token, err := km.GetSigner().Sign(claims)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSecurityHeaders(t *testing.T) {
	handler := httpx.SecurityHeaders()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
