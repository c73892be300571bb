package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceID(t *testing.T) {
	ua := "Mozilla/5.0 (X11; Linux x86_64)"

	t.Run("deterministic for same inputs", func(t *testing.T) {
		require.Equal(t, DeviceID(ua, "salt-a"), DeviceID(ua, "salt-a"))
	})

	t.Run("salt makes it unique per login", func(t *testing.T) {
		require.NotEqual(t, DeviceID(ua, "salt-a"), DeviceID(ua, "salt-b"))
	})
}

func TestClientFingerprint(t *testing.T) {
	device := DeviceID("agent", "salt")

	fp1 := ClientFingerprint("203.0.113.1", device)
	fp2 := ClientFingerprint("203.0.113.2", device)

	require.NotEqual(t, fp1, fp2, "different IPs must fingerprint differently")
	require.Equal(t, fp1, ClientFingerprint("203.0.113.1", device))

	// Output is base64url of a SHA-256 digest.
	raw, err := base64.RawURLEncoding.DecodeString(fp1)
	require.NoError(t, err)
	require.Len(t, raw, 32)
}

func TestFingerprintToken(t *testing.T) {
	fp := FingerprintToken("opaque-token-value")
	require.Equal(t, fp, FingerprintToken("opaque-token-value"))
	require.NotEqual(t, fp, FingerprintToken("other-token"))

	// Concatenation order matters: a:b and b:a must not collide.
	require.NotEqual(t, ClientFingerprint("a", "b"), ClientFingerprint("b", "a"))
}
