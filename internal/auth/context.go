package auth

import (
	"context"

	"github.com/otiai10/consultbase/internal/session"
)

// contextKey type for context value keys
type contextKey string

const (
	sessionKey contextKey = "session"
	tokenKey   contextKey = "session_token"
)

// WithSession adds the session and its token to context
func WithSession(ctx context.Context, token string, s *session.Store) context.Context {
	ctx = context.WithValue(ctx, tokenKey, token)
	return context.WithValue(ctx, sessionKey, s)
}

// GetSession retrieves the session from context
func GetSession(ctx context.Context) (*session.Store, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Store)
	return s, ok
}

// MustGetSession retrieves the session or panics (for use after middleware)
func MustGetSession(ctx context.Context) *session.Store {
	s, ok := GetSession(ctx)
	if !ok {
		panic("auth: session not found in context")
	}
	return s
}

// GetToken retrieves the session token from context
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok
}
