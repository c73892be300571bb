package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithContext stores logger in ctx for retrieval by FromContext.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger attached to ctx, or slog.Default when
// none is present. Always safe to call.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithRequestID derives a child logger carrying req_id and reattaches it.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	return WithContext(ctx, FromContext(ctx).With("req_id", reqID))
}
