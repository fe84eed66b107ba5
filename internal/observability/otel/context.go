package otel

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type handleKey struct{}

// Handle is the tracer of one aerocheck run and the shutdown that flushes it
type Handle struct {
	Tracer   trace.Tracer
	Shutdown func(context.Context) error
}

// Enabled reports whether spans started through h are recorded
func (h *Handle) Enabled() bool {
	return h != nil && h.Tracer != nil
}

// WithHandle installs h for the commands run under ctx. A disabled handle
// leaves ctx as is.
func WithHandle(ctx context.Context, h *Handle) context.Context {
	if !h.Enabled() {
		return ctx
	}
	return context.WithValue(ctx, handleKey{}, h)
}

// From returns the run's handle, nil when tracing is off
func From(ctx context.Context) *Handle {
	h, _ := ctx.Value(handleKey{}).(*Handle)
	return h
}
