package postgresstore

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/frozen-objects-go/frozen"
)

const (
	operationPut         = "put"
	operationPutFrozen   = "put_frozen"
	operationGet         = "get"
	operationDelete      = "delete"
	operationCreateTable = "create_table"

	metricPrefix          = "frozen_store_"
	metricDurationSuffix  = "_duration_seconds"
	metricOperationsTotal = "frozen_store_operations_total"
	metricErrorsTotal     = "frozen_store_errors_total"
	metricPayloadBytes    = "frozen_store_payload_bytes"

	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorType = "error_type"
	labelModel     = "model"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeInvalidInput  = "invalid_input"
	errorTypeStaleObject   = "stale_object"
	errorTypeFreeze        = "freeze"
	errorTypeEncode        = "encode"
	errorTypeUnfreeze      = "unfreeze"
	errorTypeBuildQuery    = "build_query"
	errorTypeDatabaseExec  = "database_exec"
	errorTypeDatabaseQuery = "database_query"

	spanAttrKey        = "key"
	spanAttrModel      = "model"
	spanAttrTable      = "table"
	spanAttrErrorType  = "error_type"
	spanAttrDurationMS = "duration_ms"

	logMsgSQLExecuted     = "executed sql for: "
	logMsgOperation       = "frozen store operation: "
	logMsgOperationFailed = "frozen store operation failed: "
	logMsgCloseRowsFailed = "failed to close database rows"

	logAttrError        = "error"
	logAttrQuery        = "query"
	logAttrDurationMS   = "duration_ms"
	logAttrKey          = "key"
	logAttrFound        = "found"
	logAttrPayloadBytes = "payload_bytes"
	logAttrRowsAffected = "rows_affected"
	logAttrErrorType    = "error_type"
)

// operationObserver covers span, metrics and the final log line of one store operation.
type operationObserver struct {
	s         Store
	ctx       context.Context
	operation string
	span      frozen.SpanContext
	start     time.Time
}

func (s Store) startOperation(
	ctx context.Context,
	operation string,
	attrs map[string]string,
) (*operationObserver, context.Context) {

	spanAttrs := map[string]string{
		labelOperation: operation,
		spanAttrModel:  string(s.column.Spec().SourceModel),
		spanAttrTable:  s.tableName,
	}
	for key, value := range attrs {
		spanAttrs[key] = value
	}

	var span frozen.SpanContext
	if s.tracingCollector != nil {
		ctx, span = s.tracingCollector.StartSpan(ctx, spanNames[operation], spanAttrs)
	}

	return &operationObserver{
		s:         s,
		ctx:       ctx,
		operation: operation,
		span:      span,
		start:     time.Now(),
	}, ctx
}

func (o *operationObserver) success(args ...any) {
	duration := time.Since(o.start)

	o.s.recordDuration(o.ctx, o.operation, statusSuccess, duration)
	o.s.incrementCounter(o.ctx, metricOperationsTotal, o.operation, statusSuccess, "")

	if o.span != nil {
		o.span.SetStatus(statusSuccess)
		o.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6))
		o.s.tracingCollector.FinishSpan(o.span, statusSuccess, nil)
	}

	allArgs := append([]any{logAttrDurationMS, toMilliseconds(duration)}, args...)
	o.s.logInfo(o.ctx, logMsgOperation+o.operation, allArgs...)
}

func (o *operationObserver) failure(errorType string, err error) {
	duration := time.Since(o.start)

	o.s.recordDuration(o.ctx, o.operation, statusError, duration)
	o.s.incrementCounter(o.ctx, metricOperationsTotal, o.operation, statusError, "")
	o.s.incrementCounter(o.ctx, metricErrorsTotal, o.operation, statusError, errorType)

	if o.span != nil {
		o.span.SetStatus(statusError)
		o.span.AddAttribute(spanAttrErrorType, errorType)
		o.s.tracingCollector.FinishSpan(o.span, statusError, map[string]string{spanAttrErrorType: errorType})
	}

	o.s.logError(
		o.ctx,
		logMsgOperationFailed+o.operation,
		logAttrError, err.Error(),
		logAttrErrorType, errorType,
		logAttrDurationMS, toMilliseconds(duration),
	)
}

var spanNames = map[string]string{
	operationPut:         "FrozenStore.Put",
	operationPutFrozen:   "FrozenStore.PutFrozen",
	operationGet:         "FrozenStore.Get",
	operationDelete:      "FrozenStore.Delete",
	operationCreateTable: "FrozenStore.CreateTable",
}

func (s Store) metricLabels(operation, status string) map[string]string {
	return map[string]string{
		labelOperation: operation,
		labelStatus:    status,
		labelModel:     string(s.column.Spec().SourceModel),
	}
}

func (s Store) recordDuration(ctx context.Context, operation, status string, duration time.Duration) {
	if s.metricsCollector == nil {
		return
	}

	metric := metricPrefix + operation + metricDurationSuffix
	labels := s.metricLabels(operation, status)

	if contextual, ok := s.metricsCollector.(frozen.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(metric, duration, labels)
}

func (s Store) incrementCounter(ctx context.Context, metric, operation, status, errorType string) {
	if s.metricsCollector == nil {
		return
	}

	labels := s.metricLabels(operation, status)
	if errorType != "" {
		labels[labelErrorType] = errorType
	}

	if contextual, ok := s.metricsCollector.(frozen.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metric, labels)
}

func (s Store) recordPayloadSize(ctx context.Context, operation string, size int) {
	if s.metricsCollector == nil {
		return
	}

	labels := s.metricLabels(operation, statusSuccess)

	if contextual, ok := s.metricsCollector.(frozen.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metricPayloadBytes, float64(size), labels)
		return
	}

	s.metricsCollector.RecordValue(metricPayloadBytes, float64(size), labels)
}

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (s Store) logQueryWithDuration(ctx context.Context, sqlQuery, operation string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+operation, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+operation, args...)
	}
}

func (s Store) logInfo(ctx context.Context, message string, args ...any) {
	if s.logger != nil {
		s.logger.Info(message, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, message, args...)
	}
}

func (s Store) logWarn(ctx context.Context, message string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(message, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, message, args...)
	}
}

func (s Store) logError(ctx context.Context, message string, args ...any) {
	if s.logger != nil {
		s.logger.Error(message, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, args...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
