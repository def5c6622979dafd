// Package logctx carries a request-scoped logger through context so that
// use cases log with the request id and route attached by the HTTP
// middleware.
package logctx

import (
	"context"

	"github.com/shopvn-labs/commerce-core/internal/observability"
)

type ctxKey struct{}

// With returns a context carrying the logger. Nil inputs pass through
// unchanged so callers never need to guard.
func With(ctx context.Context, log observability.Logger) context.Context {
	if ctx == nil || log == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromOr returns the context's logger, or fallback when the context does
// not carry one. This is the accessor services use; a bare From would
// force every caller to nil-check.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(ctxKey{}).(observability.Logger); ok && log != nil {
			return log
		}
	}
	return fallback
}
