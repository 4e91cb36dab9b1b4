package auth

import (
	"context"

	"finflow/internal/core"
)

type contextKey struct{}

// WithUser stores the authenticated user on ctx.
func WithUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFrom returns the authenticated user, if any.
func UserFrom(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(contextKey{}).(core.User)
	return u, ok && u.ID > 0
}
