package oteladapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/frozen-objects-go/frozen/oteladapters"
)

func givenMetricsCollector() (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return oteladapters.NewMetricsCollector(provider.Meter("test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics), "failed to collect metrics")

	metrics := make(map[string]metricdata.Metrics)
	for _, scope := range resourceMetrics.ScopeMetrics {
		for _, m := range scope.Metrics {
			metrics[m.Name] = m
		}
	}

	return metrics
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	// arrange
	collector, reader := givenMetricsCollector()
	labels := map[string]string{"operation": "put", "status": "success"}

	// act
	collector.RecordDuration("frozen_store_put_duration_seconds", 150*time.Millisecond, labels)
	collector.RecordDurationContext(context.Background(), "frozen_store_put_duration_seconds", 50*time.Millisecond, labels)

	// assert
	metrics := collect(t, reader)
	histogram, ok := metrics["frozen_store_put_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected a float64 histogram")
	require.Len(t, histogram.DataPoints, 1)

	dataPoint := histogram.DataPoints[0]
	assert.Equal(t, uint64(2), dataPoint.Count)
	assert.InDelta(t, 0.2, dataPoint.Sum, 0.001)

	expectedAttrs := attribute.NewSet(attribute.String("operation", "put"), attribute.String("status", "success"))
	assert.True(t, dataPoint.Attributes.Equals(&expectedAttrs))
	assert.Equal(t, "s", metrics["frozen_store_put_duration_seconds"].Unit)
}

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	// arrange
	collector, reader := givenMetricsCollector()
	labels := map[string]string{"operation": "get", "error_type": "unfreeze"}

	// act
	collector.IncrementCounter("frozen_store_errors_total", labels)
	collector.IncrementCounterContext(context.Background(), "frozen_store_errors_total", labels)
	collector.IncrementCounter("frozen_store_errors_total", map[string]string{"operation": "put"})

	// assert
	sum, ok := collect(t, reader)["frozen_store_errors_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum")
	require.Len(t, sum.DataPoints, 2)
	assert.True(t, sum.IsMonotonic)

	values := map[string]int64{}
	for _, dataPoint := range sum.DataPoints {
		operation, _ := dataPoint.Attributes.Value("operation")
		values[operation.AsString()] = dataPoint.Value
	}
	assert.Equal(t, map[string]int64{"get": 2, "put": 1}, values)
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	// arrange
	collector, reader := givenMetricsCollector()

	// act
	collector.RecordValue("frozen_store_payload_bytes", 100, nil)
	collector.RecordValueContext(context.Background(), "frozen_store_payload_bytes", 240, nil)

	// assert
	gauge, ok := collect(t, reader)["frozen_store_payload_bytes"].Data.(metricdata.Gauge[float64])
	require.True(t, ok, "expected a float64 gauge")
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 240.0, gauge.DataPoints[0].Value, 0.0001)
}
