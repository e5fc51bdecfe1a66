package postgresstore

import (
	"github.com/AntonStoeckl/frozen-objects-go/frozen"
)

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithTableName sets the table name for the Store.
func WithTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithColumn binds the Store to a frozen column. It is required.
func WithColumn(column frozen.Column) Option {
	return func(s *Store) error {
		s.column = column
		s.hasColumn = true

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing
// Info level: completed operations with their durations
// Warn level: non-critical issues like cleanup failures
// Error level: failures that abort an operation.
func WithLogger(logger frozen.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// It receives the same messages as the Logger, with the context of the operation for trace correlation.
func WithContextualLogger(logger frozen.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// It receives operation durations, operation and error counters and payload sizes.
func WithMetrics(collector frozen.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store. Every operation runs in its own span.
func WithTracing(collector frozen.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}
