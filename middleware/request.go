package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the caller's IP address for audit entries and rate limiting.
// chi's RealIP middleware has already replaced RemoteAddr with the forwarded
// address when the request came through a proxy.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP leaves a bare address without port
		return strings.TrimSpace(r.RemoteAddr)
	}
	return ip
}

// UserAgent returns a length limited User-Agent header
func UserAgent(r *http.Request) string {
	ua := r.UserAgent()
	if len(ua) > 256 {
		ua = ua[:256]
	}
	return ua
}
