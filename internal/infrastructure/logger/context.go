package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
	sweepIDKey   contextKey = "sweep_id"
)

// ActorFields identifies who is acting in a request
type ActorFields struct {
	ID   string
	Role string
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request id from context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithActor stores the acting user in ctx
func WithActor(ctx context.Context, id, role string) context.Context {
	return context.WithValue(ctx, actorKey, ActorFields{ID: id, Role: role})
}

// GetActor retrieves the acting user from context
func GetActor(ctx context.Context) (ActorFields, bool) {
	a, ok := ctx.Value(actorKey).(ActorFields)
	return a, ok
}

// WithSweepID tags ctx as belonging to one batch refresh run
func WithSweepID(ctx context.Context, sweepID string) context.Context {
	return context.WithValue(ctx, sweepIDKey, sweepID)
}

// GetSweepID retrieves the refresh run id from context
func GetSweepID(ctx context.Context) string {
	id, _ := ctx.Value(sweepIDKey).(string)
	return id
}

// GetTraceID extracts the trace id of the active span, if any
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// Fields returns the correlation fields carried by ctx
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if a, ok := GetActor(ctx); ok {
		fields = append(fields, zap.String("actor_id", a.ID), zap.String("actor_role", a.Role))
	}
	if id := GetSweepID(ctx); id != "" {
		fields = append(fields, zap.String("sweep_id", id))
	}
	return fields
}

// L returns base enriched with the correlation fields of ctx.
// Usage: logger.L(ctx, s.logger).Info("message")
func L(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = FromContext(ctx)
	}
	fields := Fields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
