package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the package-level tracer StartSpan draws spans from. In this
// module the coordinator opens one span per retriever dispatch; LLM calls,
// graph queries and cache operations get no span of their own.
var tracer = otel.Tracer("github.com/developer-mesh/graphrag-coordinator")

// StartSpan starts a span for a named operation, mirroring the teacher's
// otelSpanWrapper (pkg/observability/tracing.go) but returning the raw OTel
// span/context pair rather than a bespoke Span interface, since every caller
// in this module already depends on the otel API directly.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// EndSpan records the outcome of err (if any) on span and ends it. Callers
// defer this immediately after StartSpan.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
