package auth

import (
	"context"

	"mcp-pagoda/internal/bridge"
)

type contextKey struct{}

// WithIdentity attaches an authenticated identity to a context.
func WithIdentity(ctx context.Context, id *bridge.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom returns the authenticated identity attached to a context,
// if any.
func IdentityFrom(ctx context.Context) (*bridge.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*bridge.Identity)
	return id, ok
}
