package http

import "context"

type contextKey string

const usernameContextKey contextKey = "username"

// ContextWithUsername records the authenticated basic-auth user.
func ContextWithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameContextKey, username)
}

// UsernameFromContext returns the authenticated user, if any.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameContextKey).(string)
	return username, ok && username != ""
}
