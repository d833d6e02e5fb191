package api

import (
	"net"
	"net/http"
	"strings"
)

// SessionHeader carries a caller-chosen session identifier.
const SessionHeader = "X-Session-ID"

// ClientKey identifies the caller for rate limiting: the first
// X-Forwarded-For entry, then X-Real-IP, then the connection's host.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}

	return "unknown"
}

// SessionKey is the X-Session-ID header, or the client key joined with the
// User-Agent when the header is absent.
func SessionKey(r *http.Request, clientKey string) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	return clientKey + "|" + r.UserAgent()
}
