package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/plateful/auth/internal/auth/service"
	"github.com/plateful/auth/internal/auth/store/drivers/sqlite"
	"github.com/plateful/auth/pkg/cryptox"
	"github.com/plateful/auth/pkg/jwtx"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "http-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())

	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    "test-issuer",
		NumKeys:   1,
	})
	require.NoError(t, err)

	sessions := &service.SessionService{
		KeyManager:    keyManager,
		Store:         st,
		Issuer:        "test-issuer",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		RotateRefresh: true,
		Verifiers: map[string]service.StepUpVerifier{
			"two_factor": service.TOTPVerifier{},
			"biometric":  service.BiometricVerifier{Check: service.StaticAssertionCheck("assertion-credential")},
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := NewRouter(keyManager.KeySet, keyManager.Verifier, "test-issuer", "test", st, logger)
	router.Sessions = sessions
	router.ApplyRoutes()
	return router
}

func doJSON(t *testing.T, router *Router, method, path, body string, mod func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if mod != nil {
		mod(req)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	return nil
}

func registerUser(t *testing.T, router *Router, username string) (TokenResponse, *http.Cookie) {
	t.Helper()

	body := `{"username":"` + username + `","email":"` + username + `@example.com","password":"password123"}`
	rec := doJSON(t, router, http.MethodPost, "/v1/auth/register", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	cookie := refreshCookie(t, rec)
	require.NotNil(t, cookie)
	return resp, cookie
}

func TestRegisterEndpoint(t *testing.T) {
	router := newTestRouter(t)

	t.Run("creates account and sets refresh cookie", func(t *testing.T) {
		resp, cookie := registerUser(t, router, "alice")

		require.NotEmpty(t, resp.AccessToken)
		require.Equal(t, "Bearer", resp.TokenType)
		require.NotNil(t, resp.User)
		require.Equal(t, "alice", resp.User.Username)

		require.NotEmpty(t, cookie.Value)
		require.True(t, cookie.HttpOnly)
		require.True(t, cookie.Secure)
		require.Equal(t, refreshCookiePath, cookie.Path)
		require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

		// The refresh token never appears in the body.
		require.NotContains(t, rec2body(resp), cookie.Value)
	})

	t.Run("duplicate username", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/register",
			`{"username":"alice","email":"alice2@example.com","password":"password123"}`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "User already exists")
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/register", `{"username":`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func rec2body(resp TokenResponse) string {
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func TestLoginEndpoint(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "alice")

	t.Run("valid credentials", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/login",
			`{"username":"alice","password":"password123"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.AccessToken)
		require.NotNil(t, refreshCookie(t, rec))
	})

	t.Run("email as identifier", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/login",
			`{"username":"alice@example.com","password":"password123"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/login",
			`{"username":"alice","password":"wrong-password"}`, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())
	})

	t.Run("unknown user gets the same error", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/login",
			`{"username":"nobody","password":"password123"}`, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())
	})
}

func TestLoginRateLimit(t *testing.T) {
	router := newTestRouter(t)

	// Strict profile: 5 per minute per IP+username. The 6th must be blocked.
	for i := 0; i < 5; i++ {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/login",
			`{"username":"target","password":"wrong"}`, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := doJSON(t, router, http.MethodPost, "/v1/auth/login",
		`{"username":"target","password":"wrong"}`, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different username from the same IP is its own bucket.
	rec = doJSON(t, router, http.MethodPost, "/v1/auth/login",
		`{"username":"other","password":"wrong"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	router := newTestRouter(t)
	_, cookie := registerUser(t, router, "alice")

	t.Run("rotates the cookie", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/refresh", "", func(r *http.Request) {
			r.AddCookie(cookie)
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.AccessToken)

		rotated := refreshCookie(t, rec)
		require.NotNil(t, rotated)
		require.NotEmpty(t, rotated.Value)
		require.NotEqual(t, cookie.Value, rotated.Value)
	})

	t.Run("replayed cookie is rejected and cleared", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/refresh", "", func(r *http.Request) {
			r.AddCookie(cookie) // already spent above
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "Token has been revoked")

		cleared := refreshCookie(t, rec)
		require.NotNil(t, cleared)
		require.Empty(t, cleared.Value)
		require.Negative(t, cleared.MaxAge)
	})

	t.Run("missing cookie", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/refresh", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "Invalid token")
	})
}

func TestLogoutEndpoint(t *testing.T) {
	router := newTestRouter(t)
	resp, cookie := registerUser(t, router, "alice")

	t.Run("requires access token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/logout", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("revokes and clears the cookie", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/logout", "", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+resp.AccessToken)
			r.AddCookie(cookie)
		})
		require.Equal(t, http.StatusResetContent, rec.Code)

		cleared := refreshCookie(t, rec)
		require.NotNil(t, cleared)
		require.Negative(t, cleared.MaxAge)

		// The revoked refresh token no longer refreshes.
		rec = doJSON(t, router, http.MethodPost, "/v1/auth/refresh", "", func(r *http.Request) {
			r.AddCookie(cookie)
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "Token has been revoked")
	})
}

func TestStepUpEndpoint(t *testing.T) {
	router := newTestRouter(t)
	resp, cookie := registerUser(t, router, "alice")

	t.Run("biometric elevates and rotates", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/step-up",
			`{"auth_method":"biometric","code":"assertion-credential"}`, func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+resp.AccessToken)
				r.AddCookie(cookie)
			})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var elevated TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &elevated))
		require.NotEmpty(t, elevated.AccessToken)
		require.NotEqual(t, resp.AccessToken, elevated.AccessToken)
		require.Equal(t, 3, elevated.AuthLevel)
		require.Contains(t, rec.Body.String(), `"auth_level":3`)

		rotated := refreshCookie(t, rec)
		require.NotNil(t, rotated)
		require.NotEqual(t, cookie.Value, rotated.Value)

		// userinfo reflects the durable elevation.
		rec = doJSON(t, router, http.MethodGet, "/v1/userinfo", "", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+elevated.AccessToken)
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var info UserInfoResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		require.Equal(t, 3, info.AuthLevel)
		require.True(t, info.BiometricVerified)
	})

	t.Run("failed verification leaves the session intact", func(t *testing.T) {
		_, freshCookie := registerUser(t, router, "bob")
		loginRec := doJSON(t, router, http.MethodPost, "/v1/auth/login",
			`{"username":"bob","password":"password123"}`, nil)
		require.Equal(t, http.StatusOK, loginRec.Code)

		var bob TokenResponse
		require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &bob))
		freshCookie = refreshCookie(t, loginRec)

		rec := doJSON(t, router, http.MethodPost, "/v1/auth/step-up",
			`{"auth_method":"biometric","code":"wrong-assertion"}`, func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+bob.AccessToken)
				r.AddCookie(freshCookie)
			})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "Verification failed")

		// Refresh token still usable after the failed attempt.
		rec = doJSON(t, router, http.MethodPost, "/v1/auth/refresh", "", func(r *http.Request) {
			r.AddCookie(freshCookie)
		})
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestTOTPEnrollEndpoint(t *testing.T) {
	router := newTestRouter(t)
	resp, _ := registerUser(t, router, "alice")

	rec := doJSON(t, router, http.MethodPost, "/v1/auth/totp/enroll", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var enroll TOTPEnrollResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enroll))
	require.Contains(t, enroll.OTPAuthURL, "otpauth://totp/")
}

func TestUserInfoEndpoint(t *testing.T) {
	router := newTestRouter(t)
	resp, _ := registerUser(t, router, "alice")

	t.Run("authenticated", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/v1/userinfo", "", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+resp.AccessToken)
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var info UserInfoResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		require.Equal(t, "alice", info.Username)
		require.Equal(t, "alice@example.com", info.Email)
		require.Equal(t, 1, info.AuthLevel)
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/v1/userinfo", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSystemEndpoints(t *testing.T) {
	router := newTestRouter(t)

	t.Run("jwks", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/.well-known/jwks.json", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var jwks jwtx.JWKS
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jwks))
		require.Len(t, jwks.Keys, 1)
		require.Equal(t, "OKP", jwks.Keys[0].Kty)
	})

	t.Run("livez", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/livez", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"status":"ok"`)
	})

	t.Run("readyz", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/readyz", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var health HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		require.Equal(t, "ok", health.Status)
		require.NotNil(t, health.Checks)
		require.Equal(t, "ok", health.Checks.Database)
		require.Equal(t, "ok", health.Checks.Signer)
	})

	t.Run("request id header", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/livez", "", nil)
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("security headers applied globally", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/livez", "", nil)
		require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})
}
