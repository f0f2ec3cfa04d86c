package module

import (
	"context"

	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/dagbft/narwhal/module/trace"
)

var (
	_ Tracer = (*trace.Tracer)(nil)
	_ Tracer = (*trace.NoopTracer)(nil)
)

// Tracer starts spans for the request paths of a primary.
type Tracer interface {
	StartSpanFromContext(
		ctx context.Context,
		operationName trace.SpanName,
		opts ...otelTrace.SpanStartOption,
	) (
		otelTrace.Span,
		context.Context,
	)
}
