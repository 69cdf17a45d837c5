package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/otiai10/consultbase/internal/session"
)

// SessionResolver looks up a session by token
type SessionResolver interface {
	Get(token string) (*session.Store, bool)
}

// Ensure session.Manager implements SessionResolver
var _ SessionResolver = (*session.Manager)(nil)

// BearerToken extracts the token of an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	// Check for "Bearer " prefix (case-sensitive)
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return token, token != ""
}

// Middleware returns middleware that resolves the session token.
// Requires Authorization header: Bearer <token>
// Returns 401 if the token is missing or unknown.
// On success, adds the session to context.
func Middleware(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				writeJSONError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			s, ok := resolver.Get(token)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Session not found")
				return
			}

			ctx := WithSession(r.Context(), token, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOwner rejects viewers that are not team owners with 403.
// It must run after Middleware.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := GetSession(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "Session not found")
			return
		}
		if !s.IsOwner() {
			writeJSONError(w, http.StatusForbidden, "Only team owners can perform this action")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSONError writes a JSON error response with the given status code and message
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
