package logging

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// traceKey holds the identifiers StartSpan threads through nested calls.
type traceKey struct{}

type requestIDKey struct{}

type trace struct {
	traceID string
	spanID  string
}

// WithLogger attaches logger to ctx. A nil logger leaves ctx untouched.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(orBackground(ctx), loggerKey{}, logger)
}

// FromContext returns the logger attached to ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}

// WithRequestID records the inbound request id. Spans started below it reuse
// the id as their trace id so log lines of one request can be joined.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(orBackground(ctx), requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// TraceIDFromContext returns the trace id of the innermost span, if any.
func TraceIDFromContext(ctx context.Context) string {
	return traceFrom(ctx).traceID
}

// SpanIDFromContext returns the id of the innermost span, if any.
func SpanIDFromContext(ctx context.Context) string {
	return traceFrom(ctx).spanID
}

func traceFrom(ctx context.Context) trace {
	if ctx == nil {
		return trace{}
	}
	t, _ := ctx.Value(traceKey{}).(trace)
	return t
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
