package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// SpanName names a traced operation.
type SpanName string

const (
	BlockWaiterGetBlocks    SpanName = "blockwaiter.getBlocks"
	BlockWaiterFetchBatches SpanName = "blockwaiter.fetchBatches"
	SynchronizerGetParents  SpanName = "synchronizer.getParents"
	SynchronizerPayload     SpanName = "synchronizer.missingPayload"
	ProducerPropose         SpanName = "producer.propose"
)

const instrumentationName = "github.com/dagbft/narwhal"

// Tracer starts spans on the globally registered tracer provider.
type Tracer struct {
	tracer trace.Tracer
}

func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(instrumentationName)}
}

func (t *Tracer) StartSpanFromContext(ctx context.Context, operationName SpanName, opts ...trace.SpanStartOption) (trace.Span, context.Context) {
	ctx, span := t.tracer.Start(ctx, string(operationName), opts...)
	return span, ctx
}

// NoopTracer starts spans that record nothing.
type NoopTracer struct {
	tracer trace.Tracer
}

func NewNoopTracer() *NoopTracer {
	return &NoopTracer{tracer: trace.NewNoopTracerProvider().Tracer(instrumentationName)}
}

func (t *NoopTracer) StartSpanFromContext(ctx context.Context, operationName SpanName, opts ...trace.SpanStartOption) (trace.Span, context.Context) {
	ctx, span := t.tracer.Start(ctx, string(operationName), opts...)
	return span, ctx
}
