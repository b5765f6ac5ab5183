// Package shield holds the HTTP middleware every a11ywatch API route runs
// behind: security headers, request body limits and request IDs.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.APIStack(1 << 20) {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// APIStack returns the middleware for the JSON API, outermost first:
// HeadToGet, SecurityHeaders, MaxBody, RequestID.
func APIStack(maxBody int64) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(APIHeaders()),
		MaxBody(maxBody),
		RequestID,
	}
}

// HeadToGet serves HEAD requests with the GET handler. net/http drops the
// body of HEAD responses.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}
