package observability

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// TestLogHandler is a slog.Handler implementation that captures log records for testing.
type TestLogHandler struct {
	records     []slog.Record
	mu          sync.Mutex
	logToStdout bool
}

// NewTestLogHandler creates a new TestLogHandler.
// Switchable to log to stdout, which can be useful for debugging tests by seeing the actual log output.
func NewTestLogHandler(logToStdOut bool) *TestLogHandler {
	return &TestLogHandler{
		records:     make([]slog.Record, 0),
		logToStdout: logToStdOut,
	}
}

// Handle implements slog.Handler interface.
func (h *TestLogHandler) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)

	if h.logToStdout {
		jsonHandler := slog.NewJSONHandler(os.Stdout, nil)
		_ = jsonHandler.Handle(ctx, record)
	}

	return nil
}

// Enabled implements slog.Handler interface.
func (h *TestLogHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler interface.
func (h *TestLogHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

// WithGroup implements slog.Handler interface.
func (h *TestLogHandler) WithGroup(_ string) slog.Handler {
	return h
}

// GetRecordCount returns the number of captured log records.
func (h *TestLogHandler) GetRecordCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.records)
}

// Reset clears all captured log records.
func (h *TestLogHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = h.records[:0]
}

// LogRecordMatcher provides a fluent interface for checking log record attributes.
type LogRecordMatcher struct {
	record *slog.Record
	found  bool
}

// HasDebugLogWithMessage starts a fluent chain to check a debug-level log record.
func (h *TestLogHandler) HasDebugLogWithMessage(message string) *LogRecordMatcher {
	return h.findRecord(slog.LevelDebug, message)
}

// HasInfoLogWithMessage starts a fluent chain to check an info-level log record.
func (h *TestLogHandler) HasInfoLogWithMessage(message string) *LogRecordMatcher {
	return h.findRecord(slog.LevelInfo, message)
}

// HasErrorLogWithMessage starts a fluent chain to check an error-level log record.
func (h *TestLogHandler) HasErrorLogWithMessage(message string) *LogRecordMatcher {
	return h.findRecord(slog.LevelError, message)
}

func (h *TestLogHandler) findRecord(level slog.Level, message string) *LogRecordMatcher {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, record := range h.records {
		if record.Level == level && record.Message == message {
			return &LogRecordMatcher{record: &record, found: true}
		}
	}

	return &LogRecordMatcher{found: false}
}

// WithDurationMS checks if the log record has a duration_ms attribute with a non-negative value.
func (m *LogRecordMatcher) WithDurationMS() *LogRecordMatcher {
	return m.withAttr("duration_ms", func(v slog.Value) bool {
		switch v.Kind() {
		case slog.KindInt64:
			return v.Int64() >= 0
		case slog.KindFloat64:
			return v.Float64() >= 0
		default:
			return false
		}
	})
}

// WithAttribute checks if the log record has the attribute key with the given string representation.
func (m *LogRecordMatcher) WithAttribute(key, value string) *LogRecordMatcher {
	return m.withAttr(key, func(v slog.Value) bool {
		return v.String() == value
	})
}

// WithErrorAttribute checks if the log record has a non-empty error attribute.
func (m *LogRecordMatcher) WithErrorAttribute() *LogRecordMatcher {
	return m.withAttr("error", func(v slog.Value) bool {
		return v.String() != ""
	})
}

func (m *LogRecordMatcher) withAttr(key string, match func(slog.Value) bool) *LogRecordMatcher {
	if !m.found {
		return m
	}

	matched := false
	m.record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key && match(attr.Value) {
			matched = true
			return false
		}

		return true
	})

	if !matched {
		m.found = false
	}

	return m
}

// Assert returns true if all conditions in the fluent chain were met.
func (m *LogRecordMatcher) Assert() bool {
	return m.found
}
