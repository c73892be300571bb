package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/plateful/auth/internal/auth/service"
	"github.com/plateful/auth/pkg/httpx"
)

// writeServiceError is the single place service sentinels become HTTP
// responses, so every endpoint reports token and credential failures with
// the same status and body shape. Unexpected errors are logged and hidden
// behind a generic 500.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, service.ErrUserExists):
		httpx.WriteError(w, http.StatusBadRequest, "User already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrTokenExpired):
		httpx.WriteError(w, http.StatusUnauthorized, "Token has expired")
	case errors.Is(err, service.ErrTokenRevoked):
		httpx.WriteError(w, http.StatusUnauthorized, "Token has been revoked")
	case errors.Is(err, service.ErrTokenInvalid):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, service.ErrVerificationFailed):
		httpx.WriteError(w, http.StatusUnauthorized, "Verification failed")
	default:
		log.Error("unexpected error", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// isTokenError reports whether the refresh cookie should be cleared: any
// classified token failure means the cookie the client holds is useless.
func isTokenError(err error) bool {
	return errors.Is(err, service.ErrTokenInvalid) ||
		errors.Is(err, service.ErrTokenExpired) ||
		errors.Is(err, service.ErrTokenRevoked)
}
