package http

import (
	"net/http"
	"time"
)

// refreshCookieName is the refresh token transport. The token never
// appears in response bodies.
const refreshCookieName = "refresh_token"

// refreshCookiePath scopes the cookie to the session endpoints that
// actually consume it.
const refreshCookiePath = "/v1/auth"

func setRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// refreshTokenFromRequest reads the refresh cookie, empty when absent.
func refreshTokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
