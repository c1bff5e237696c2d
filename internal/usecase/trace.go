package usecase

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var usecaseTracer = otel.Tracer("bentley-ave-transfer-risk-test/internal/usecase")
var usecaseNoopSpan = trace.SpanFromContext(context.Background())

// startRunSpan opens the root span a batch run hangs off. Unlike
// startUsecaseSpan it does not require a valid parent: the CLI has no
// inbound middleware to supply one, so the pipeline mints the root itself.
func startRunSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return usecaseTracer.Start(ctx, name)
}

func startUsecaseSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if strings.TrimSpace(name) == "" {
		return ctx, usecaseNoopSpan
	}
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() {
		return ctx, usecaseNoopSpan
	}
	return usecaseTracer.Start(ctx, name)
}
