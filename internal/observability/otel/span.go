package otel

import (
	"context"

	"github.com/aerocheck/aerocheck/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on aerocheck spans
const (
	AttrCommand      = attribute.Key("aerocheck.command")
	AttrOpID         = attribute.Key("aerocheck.op_id")
	AttrDocument     = attribute.Key("aerocheck.document")
	AttrDocumentType = attribute.Key("aerocheck.document_type")
	AttrCatalog      = attribute.Key("aerocheck.catalog")
	AttrStatus       = attribute.Key("aerocheck.status")
	AttrRiskScore    = attribute.Key("aerocheck.risk_score")
	AttrViolations   = attribute.Key("aerocheck.violations")
	AttrItems        = attribute.Key("aerocheck.items")
)

// Start opens a child span when tracing is enabled in ctx. Without a
// handle it returns ctx unchanged and a non-recording span.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	h := From(ctx)
	if !h.Enabled() {
		return ctx, trace.SpanFromContext(ctx)
	}
	attrs = append(attrs, AttrOpID.String(observability.OpID(ctx)))
	return h.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on span, sets its status and ends it
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
