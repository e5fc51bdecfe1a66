package oteladapters

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/frozen-objects-go/frozen/postgresstore"
)

// StoreOptions returns the postgresstore options which route logs, metrics and spans of a store to OpenTelemetry.
// Logs go through the slog bridge registered under name.
func StoreOptions(name string, meter metric.Meter, tracer trace.Tracer) []postgresstore.Option {
	return []postgresstore.Option{
		postgresstore.WithContextualLogger(NewSlogBridgeLogger(name)),
		postgresstore.WithMetrics(NewMetricsCollector(meter)),
		postgresstore.WithTracing(NewTracingCollector(tracer)),
	}
}
