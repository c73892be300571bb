package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/plateful/auth/pkg/idx"
)

// Default token TTLs. Services override these via config.
const (
	// DefaultAccessTTL keeps access tokens short-lived.
	DefaultAccessTTL = 15 * time.Minute

	// DefaultRefreshTTL bounds how long a session lineage can survive
	// without a fresh login.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenType discriminates the two token variants. Every issued token
// carries it so an access token can never be replayed as a refresh token
// or vice versa.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// AccessClaims is the fixed claim contract for access tokens. Changes
// must stay additive so resource services keep parsing older tokens.
type AccessClaims struct {
	jwt.RegisteredClaims

	TokenType TokenType `json:"token_type"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`

	// AuthLevel is the tier the session has proven: 1 password,
	// 2 two-factor, 3 biometric.
	AuthLevel int `json:"auth_level"`
}

// RefreshClaims is the fixed claim contract for refresh tokens. It binds
// the token to the client that obtained it.
type RefreshClaims struct {
	jwt.RegisteredClaims

	TokenType TokenType `json:"token_type"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`

	// DeviceID identifies the login event's device (User-Agent hashed
	// with a per-login salt).
	DeviceID string `json:"device_id"`

	// IP is the client address observed at issuance.
	IP string `json:"ip"`

	// Fingerprint is SHA-256 over "ip:device_id", base64url.
	Fingerprint string `json:"fingerprint"`

	// CreatedAt records the original issuance instant in unix seconds.
	// It survives rotation unchanged so the lineage start is auditable.
	CreatedAt int64 `json:"created_at"`

	AuthLevel int `json:"auth_level"`
}

// NewAccessClaims builds minimally-correct access claims with a fresh jti.
func NewAccessClaims(userID, username string, authLevel int, issuer string, audience []string, ttl time.Duration, now time.Time) AccessClaims {
	return AccessClaims{
		RegisteredClaims: registered(userID, issuer, audience, ttl, now),
		TokenType:        TokenTypeAccess,
		UserID:           userID,
		Username:         username,
		AuthLevel:        authLevel,
	}
}

// NewRefreshClaims builds refresh claims bound to the given client
// identity. createdAt should be the lineage origin, not now, when rotating.
func NewRefreshClaims(userID, username, deviceID, ip, fingerprint string, createdAt int64, authLevel int, issuer string, audience []string, ttl time.Duration, now time.Time) RefreshClaims {
	return RefreshClaims{
		RegisteredClaims: registered(userID, issuer, audience, ttl, now),
		TokenType:        TokenTypeRefresh,
		UserID:           userID,
		Username:         username,
		DeviceID:         deviceID,
		IP:               ip,
		Fingerprint:      fingerprint,
		CreatedAt:        createdAt,
		AuthLevel:        authLevel,
	}
}

func registered(subject, issuer string, audience []string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings(audience),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a unique, sortable identifier for the "jti" claim.
func NewJTI() string {
	return idx.New().String()
}

func validateIssuer(rc jwt.RegisteredClaims, expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if rc.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

func validateAudience(rc jwt.RegisteredClaims, expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}
	for _, want := range expected {
		if slices.Contains(rc.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}
