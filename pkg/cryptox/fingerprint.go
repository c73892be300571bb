package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
)

// DeviceID derives a per-login device identifier from the client's
// User-Agent and a fresh random salt. The salt makes the id unique per
// login event rather than a durable device identity.
func DeviceID(userAgent, salt string) string {
	return hashConcat(userAgent, salt)
}

// ClientFingerprint binds a refresh token to the network client that
// requested it: SHA-256 over "ip:deviceID", base64url-encoded.
func ClientFingerprint(ip, deviceID string) string {
	return hashConcat(ip, deviceID)
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of an
// opaque token value, for storing hashes instead of the token itself.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func hashConcat(a, b string) string {
	sum := sha256.Sum256([]byte(a + ":" + b))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
