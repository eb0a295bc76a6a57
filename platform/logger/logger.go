// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// LeadIDKey is the context key for the lead being processed
	LeadIDKey contextKey = "lead_id"
	// TurnIDKey is the context key for the conversation turn ID
	TurnIDKey contextKey = "turn_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, lead_id, and turn_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if leadID, ok := ctx.Value(LeadIDKey).(string); ok && leadID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("lead_id", leadID))}
	}

	if turnID, ok := ctx.Value(TurnIDKey).(string); ok && turnID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("turn_id", turnID))}
	}

	return newLogger
}

// WithLead returns a logger with the lead phone attached.
func (l *Logger) WithLead(phone string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("lead_phone", phone)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// TurnError logs a failed conversation turn.
func (l *Logger) TurnError(leadPhone, stage string, err error) {
	l.Error("turn_error",
		slog.String("lead_phone", leadPhone),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}

// GatewaySend logs an outbound gateway send.
func (l *Logger) GatewaySend(leadPhone string, chunks int, latencyMs float64) {
	l.Info("gateway_send",
		slog.String("lead_phone", leadPhone),
		slog.Int("chunks", chunks),
		slog.Float64("latency_ms", latencyMs),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// SchedulerEvent logs background loop activity.
func (l *Logger) SchedulerEvent(loop string, processed, failed int) {
	l.Info("scheduler_tick",
		slog.String("loop", loop),
		slog.Int("processed", processed),
		slog.Int("failed", failed),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
