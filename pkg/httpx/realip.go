package httpx

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the originating client address. Proxy headers win over
// the socket address: X-Forwarded-For (first hop), then X-Real-IP, then
// RemoteAddr with the port stripped.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
