package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "relay-server/response-orchestrator"
)

// GetTracer returns the tracer for the response-orchestrator service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// ResponseAttributes returns common attributes for response spans.
func ResponseAttributes(model string, streaming bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("response.model", model),
		attribute.Bool("response.streaming", streaming),
	}
}

// ConversationAttributes returns common attributes for conversation spans.
func ConversationAttributes(conversationID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("conversation.id", conversationID),
	}
}

// StartResponseSpan starts a new span for a response execution.
func StartResponseSpan(ctx context.Context, operation, model string, streaming bool) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, "response."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(ResponseAttributes(model, streaming)...),
	)
	return ctx, span
}

// StartConversationSpan starts a new span for a conversation state operation.
func StartConversationSpan(ctx context.Context, operation, conversationID string) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, "conversation."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(ConversationAttributes(conversationID)...),
	)
	return ctx, span
}

// StartUpstreamSpan starts a new client span for an upstream LLM API call.
// Each retry attempt gets its own span.
func StartUpstreamSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, "upstream."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	return ctx, span
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddStreamCompletedEvent marks the end of a client stream on a span.
func AddStreamCompletedEvent(span trace.Span, chunks int, reason string) {
	span.AddEvent("stream.completed",
		trace.WithAttributes(
			attribute.Int("stream.chunks", chunks),
			attribute.String("stream.reason", reason),
		),
	)
}

// AddResponseIDAttribute records the upstream response id once assigned.
func AddResponseIDAttribute(span trace.Span, responseID string) {
	span.SetAttributes(attribute.String("response.id", responseID))
}
