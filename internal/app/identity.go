package app

import (
	"context"

	"librarycat/internal/domain"
)

type identityKey struct{}

// ContextWithIdentity returns a copy of ctx carrying the authenticated identity.
func ContextWithIdentity(ctx context.Context, id *domain.SessionIdentity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by ContextWithIdentity.
func IdentityFromContext(ctx context.Context) (*domain.SessionIdentity, bool) {
	id, ok := ctx.Value(identityKey{}).(*domain.SessionIdentity)
	return id, ok && id != nil
}
