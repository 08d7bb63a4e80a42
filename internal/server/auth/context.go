package auth

import (
	"context"

	"github.com/dmitrijs2005/accountsvc/internal/server/models"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// WithClaims returns a copy of ctx carrying verified claims.
func WithClaims(ctx context.Context, c *models.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (*models.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*models.Claims)
	return c, ok && c != nil
}
