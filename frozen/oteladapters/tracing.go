package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/frozen-objects-go/frozen"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// TracingCollector implements frozen.TracingCollector with an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector on a tracer from your TracerProvider.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span as child of the span in ctx, if any.
func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, frozen.SpanContext) {

	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &SpanContext{span: span}
}

// FinishSpan sets the final status and attributes and ends the span.
// Span contexts not created by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx frozen.SpanContext, status string, attrs map[string]string) {
	s, ok := spanCtx.(*SpanContext)
	if !ok {
		return
	}

	s.span.SetAttributes(toAttributes(attrs)...)
	s.SetStatus(status)
	s.span.End()
}

// SpanContext wraps an OpenTelemetry span.
type SpanContext struct {
	span trace.Span
}

// SetStatus maps the store's status strings to span status codes. Other values are kept as a "status" attribute.
func (s *SpanContext) SetStatus(status string) {
	switch status {
	case statusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case statusError:
		s.span.SetStatus(codes.Error, "frozen store operation failed")
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

func (s *SpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var (
	_ frozen.TracingCollector = (*TracingCollector)(nil)
	_ frozen.SpanContext      = (*SpanContext)(nil)
)
