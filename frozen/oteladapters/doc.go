// Package oteladapters implements the frozen observability interfaces on top of OpenTelemetry.
//
// The adapters plug into the frozen object store directly:
//
//	store, err := postgresstore.NewStoreFromPGXPool(
//		pool,
//		append(oteladapters.StoreOptions("frozen", meter, tracer), postgresstore.WithColumn(column))...,
//	)
//
// Each adapter can also be used alone: SlogBridgeLogger and OTelLogger for logging, MetricsCollector
// for metrics and TracingCollector for spans.
package oteladapters
