// Package httputil holds small helpers shared by the HTTP surfaces.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address used to key per-client limits.
// With trustProxy, the first X-Forwarded-For entry and then X-Real-IP are
// preferred over RemoteAddr; header values that do not parse as an IP are
// ignored. Enable trustProxy only behind a reverse proxy that sets them.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := parseIP(first); ip != "" {
				return ip
			}
		}
		if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	return hostOnly(r.RemoteAddr)
}

func parseIP(s string) string {
	s = hostOnly(strings.TrimSpace(s))
	if net.ParseIP(s) == nil {
		return ""
	}
	return s
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
