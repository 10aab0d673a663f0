// Package clientip resolves the originating client IP of an HTTP request,
// honoring the usual proxy headers. Used for audit logging of auth and
// CSRF events.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// FromRequest returns the best-guess client IP for r.
// Checks X-Forwarded-For (first hop), then X-Real-IP, then RemoteAddr.
// Returns "unknown" when nothing parseable is found.
func FromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First entry is the originating client; later hops are proxies.
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}

	if xr := r.Header.Get("X-Real-IP"); xr != "" {
		if ip := net.ParseIP(strings.TrimSpace(xr)); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if ip := net.ParseIP(r.RemoteAddr); ip != nil {
			return ip.String()
		}
		return "unknown"
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return "unknown"
}
