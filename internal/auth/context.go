package auth

import "context"

type ctxKey string

const claimsKey ctxKey = "auth_claims"

// NewContext stores claims in the context.
func NewContext(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// FromContext extracts claims from the context. Returns nil if none are set.
func FromContext(ctx context.Context) *Claims {
	v, _ := ctx.Value(claimsKey).(*Claims)
	return v
}
