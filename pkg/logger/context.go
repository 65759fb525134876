package logger

import (
	"context"
	"log/slog"
)

type ctxKey string

const loggerKey ctxKey = "logger"

// With attaches fields to the request-scoped logger and stores the result
// back in the context. Repeated calls accumulate fields.
func With(ctx context.Context, fields ...any) context.Context {
	enriched := From(ctx).With(fields...)
	return context.WithValue(ctx, loggerKey, enriched)
}

// From retrieves the request-scoped logger, falling back to the process
// logger when the context carries none.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return LoggerWrapper()
}
