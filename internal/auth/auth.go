// Package auth enforces bearer-token authentication on the control API.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/httputil"
)

// Config holds authentication configuration.
type Config struct {
	Enabled bool
	Token   string
	// ProtectReads extends the token requirement to GET requests on
	// non-exempt paths. Mutating requests always need the token when
	// Enabled is set.
	ProtectReads bool
}

// exemptPaths are always public regardless of auth configuration.
var exemptPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// requiresToken reports whether r must carry the bearer token under cfg.
func requiresToken(cfg Config, r *http.Request) bool {
	if exemptPaths[r.URL.Path] {
		return false
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return cfg.ProtectReads
	default:
		return true
	}
}

// Middleware returns an HTTP middleware that enforces Bearer token auth
// when auth is enabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || !requiresToken(cfg, r) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")

			if !ok || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="solarharmonics"`)
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
