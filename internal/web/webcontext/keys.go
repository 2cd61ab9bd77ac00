// Package webcontext defines the typed context keys shared across the
// web layer. Using a private key type keeps values from colliding with
// other packages writing into the same request context.
package webcontext

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	roleKey      contextKey = "role"
)

// SetRequestID stores the request ID in the context.
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID, or "" when none was set.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// SetRole stores the caller's role in the context.
func SetRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// Role returns the caller's role, or "" when none was set. The
// capability resolver treats an empty role as its configured default.
func Role(ctx context.Context) string {
	if role, ok := ctx.Value(roleKey).(string); ok {
		return role
	}
	return ""
}
