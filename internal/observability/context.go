// Package observability carries the per-invocation operation id.
package observability

import (
	"context"

	"github.com/google/uuid"
)

type opIDKey struct{}

// WithOpID generates a new operation id and stores it in the context.
// Each CLI invocation calls this once at startup.
func WithOpID(ctx context.Context) context.Context {
	return context.WithValue(ctx, opIDKey{}, uuid.NewString())
}

// OpID retrieves the operation id from context, "" if none was set
func OpID(ctx context.Context) string {
	if id, ok := ctx.Value(opIDKey{}).(string); ok {
		return id
	}
	return ""
}
