package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With stores a logger carrying fields in ctx. Fields accumulate across calls,
// so middleware can add request_id and the auth layer user_id and role.
func With(ctx context.Context, fields ...any) context.Context {
	return Into(ctx, From(ctx).With(fields...))
}

// Into stores l in ctx as the request-scoped logger.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the request-scoped logger, or the process logger when ctx has none.
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return LoggerWrapper()
}
