package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one service operation and logs its outcome when it ends.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
	err    error
}

// StartSpan opens a span named name under whatever span ctx already carries.
// The returned context carries a logger annotated with trace_id, span_id and
// span_name so that calls made beneath it log with the same identifiers.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	ctx = orBackground(ctx)
	parent := traceFrom(ctx)
	logger := FromContext(ctx)

	current := trace{traceID: parent.traceID, spanID: uuid.NewString()}
	if current.traceID == "" {
		current.traceID = RequestIDFromContext(ctx)
		if current.traceID == "" {
			current.traceID = uuid.NewString()
		}
		logger = logger.With(slog.String("trace_id", current.traceID))
	}

	attrs := []any{slog.String("span_id", current.spanID), slog.String("span_name", name)}
	if parent.spanID != "" {
		attrs = append(attrs, slog.String("parent_span_id", parent.spanID))
	}
	logger = logger.With(attrs...)

	ctx = context.WithValue(ctx, traceKey{}, current)
	ctx = WithLogger(ctx, logger)
	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// RecordError marks the span as failed. The last non-nil error wins.
func (s *Span) RecordError(err error) {
	if s == nil || err == nil {
		return
	}
	s.err = err
}

// End logs the span duration. Failed spans log at warn level.
func (s *Span) End() {
	if s == nil {
		return
	}
	elapsed := slog.Duration("duration", time.Since(s.start))
	if s.err != nil {
		s.logger.Warn("span failed", elapsed, slog.String("error", s.err.Error()))
		return
	}
	s.logger.Debug("span completed", elapsed)
}
