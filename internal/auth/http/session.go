package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/plateful/auth/internal/auth/domain"
	"github.com/plateful/auth/internal/auth/service"
)

// SessionHandler serves the session lifecycle endpoints.
type SessionHandler struct {
	Sessions *service.SessionService
	Logger   *slog.Logger
}

// TokenResponse is the body returned by login, register, refresh, and
// step-up. The refresh token travels only in the cookie.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	AuthLevel   int          `json:"auth_level,omitempty"`
	User        *UserSummary `json:"user,omitempty"`
}

// UserSummary is the public slice of an account record.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func summarize(u domain.User) *UserSummary {
	return &UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}

// decodeJSON decodes a request body with unknown fields rejected, matching
// the strictness of the validation layer.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
