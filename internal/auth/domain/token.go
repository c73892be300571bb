package domain

import "time"

// TokenPair is what a successful login, refresh, or step-up hands back.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // always "Bearer"
	ExpiresIn    int64  // access token lifetime in seconds
	AuthLevel    int    // level the pair was issued at
}

// RevokedToken is a blacklist entry for a refresh token jti. Rows outlive
// the token's own expiry only until housekeeping sweeps them.
type RevokedToken struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
	RevokedAt time.Time
}
