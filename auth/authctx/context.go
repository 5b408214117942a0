// Package authctx carries the authenticated identity through a request
// context. The middleware stores verified access-token claims; handlers read
// them back. Nothing stored here outlives the request.
package authctx

import (
	"context"
	"errors"

	"github.com/kbukum/codecompass/auth/jwt"
)

type contextKey struct{}

var claimsKey = contextKey{}

// ErrNoIdentity is returned when no authenticated identity is attached.
var ErrNoIdentity = errors.New("authctx: no identity in context")

// WithClaims attaches verified claims to the context.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Claims returns the verified claims attached to the context, if any.
func Claims(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*jwt.Claims)
	return claims, ok && claims != nil
}

// Identity returns the authenticated principal attached to the context.
func Identity(ctx context.Context) (jwt.Identity, bool) {
	claims, ok := Claims(ctx)
	if !ok {
		return jwt.Identity{}, false
	}
	return claims.Identity(), true
}

// IdentityOrError is Identity returning ErrNoIdentity when absent.
func IdentityOrError(ctx context.Context) (jwt.Identity, error) {
	id, ok := Identity(ctx)
	if !ok {
		return jwt.Identity{}, ErrNoIdentity
	}
	return id, nil
}

// MustIdentity panics when no identity is attached. Use only behind a
// middleware that guarantees authentication.
func MustIdentity(ctx context.Context) jwt.Identity {
	id, ok := Identity(ctx)
	if !ok {
		panic("authctx: identity not found in context")
	}
	return id
}
