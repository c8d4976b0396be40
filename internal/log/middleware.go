package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs the completion of an HTTP request. 4xx responses log at
// warn, 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).LogContext(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogValidationFailed logs a rejected submission at debug level; these are
// user mistakes, not faults.
func (sl *StructuredLogger) LogValidationFailed(ctx context.Context, rule string, expenseCount int) {
	sl.logger.WithComponent(ComponentIntake).DebugContext(ctx, "Submission rejected by validation",
		FieldOperation, OpValidate,
		FieldRule, rule,
		FieldExpenseCount, expenseCount,
	)
}

// LogAnalysisCompleted logs a successful analysis call.
func (sl *StructuredLogger) LogAnalysisCompleted(ctx context.Context, expenseCount int, yearlyExpenses string, aligned bool, durationMs int64) {
	fields := NewFields().
		WithOperation(OpAnalyze).
		WithSubmission(expenseCount, yearlyExpenses)
	fields[FieldGoalAligned] = aligned
	fields[FieldDuration] = durationMs

	sl.logger.WithComponent(ComponentAnalysis).InfoContext(ctx, "Analysis completed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, fields.ToSlice()...)
}
