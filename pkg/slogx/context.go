package slogx

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type ctxKey struct{}

type subjectKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// With returns ctx carrying the context logger extended with args.
func With(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}

// SetSubject records who the request acts for so the access log line can
// name them. It is a no-op outside HTTPMiddleware.
func SetSubject(ctx context.Context, subject string) {
	if s, ok := ctx.Value(subjectKey{}).(*atomic.Pointer[string]); ok {
		s.Store(&subject)
	}
}

func withSubjectSlot(ctx context.Context) (context.Context, *atomic.Pointer[string]) {
	s := new(atomic.Pointer[string])
	return context.WithValue(ctx, subjectKey{}, s), s
}
