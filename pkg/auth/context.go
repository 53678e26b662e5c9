package auth

import (
	"context"

	"github.com/telefonbog/telefonbog/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// CallerKey is the context key for the authenticated caller.
const CallerKey contextKey = "caller"

// WithCaller stores caller in ctx.
func WithCaller(ctx context.Context, caller *models.Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// CallerFromContext returns the authenticated caller, or nil when the
// request is anonymous. Services treat nil as "not logged in".
func CallerFromContext(ctx context.Context) *models.Caller {
	caller, _ := ctx.Value(CallerKey).(*models.Caller)
	return caller
}
