package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

func NewLogger() (*zap.Logger, error) {
	// Use production logger by default — structured, performant.
	return zap.NewProduction()
}

// WithLogger returns a context carrying a request-scoped logger.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or a nop logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
