package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/appforge-ai/AppForge/internal/auth"
)

// KeyLookup returns the stored bcrypt hash for an API key prefix.
// Implementations return domain.ErrNotFound for unknown prefixes.
type KeyLookup func(ctx context.Context, prefix string) ([]byte, error)

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":       true,
	"/health/ready": true,
}

// Auth returns middleware that validates API key credentials from the
// X-API-Key header, an Authorization: Bearer header, or — for WebSocket
// upgrades — a ?key= query parameter. When authEnabled is false all
// requests pass through.
func Auth(lookup KeyLookup, authEnabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authEnabled || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := presentedKey(r)
			if key == "" {
				unauthorized(w, "authorization required")
				return
			}

			prefix, err := auth.PrefixOf(key)
			if err != nil {
				unauthorized(w, "invalid api key")
				return
			}
			hash, err := lookup(r.Context(), prefix)
			if err != nil {
				unauthorized(w, "invalid api key")
				return
			}
			if err := auth.Verify(hash, key); err != nil {
				unauthorized(w, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func presentedKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if header := r.Header.Get("Authorization"); header != "" {
		if key := strings.TrimPrefix(header, "Bearer "); key != header {
			return key
		}
		return ""
	}
	// Browsers cannot set headers on WebSocket dials.
	if r.URL.Path == "/ws" {
		return r.URL.Query().Get("key")
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	http.Error(w, `{"error":"`+msg+`"}`, http.StatusUnauthorized)
}
