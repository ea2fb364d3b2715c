package middleware

import (
	"context"
	"net/http"
	"strings"
)

// HeaderSessionKey carries the anonymous cart owner key. Clients mint none;
// the cart service issues one on first use and the client echoes it back.
const HeaderSessionKey = "X-Session-Key"

// SessionKey copies the anonymous cart key header into the request context.
func SessionKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(HeaderSessionKey))
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), ctxSessionKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
