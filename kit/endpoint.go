// Package kit holds the transport-neutral endpoint type shared by the HTTP
// routes and the MCP tools, with the request-scoped context values both
// transports set.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint is one operation of the service, independent of its transport.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first one is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs every call of the endpoint named op.
func Logging(logger *slog.Logger, op string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := append([]any{"op", op, "duration", time.Since(start)}, LogAttrs(ctx)...)
			if err != nil {
				logger.Warn("kit: endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("kit: endpoint", attrs...)
			}
			return resp, err
		}
	}
}
