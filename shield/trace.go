package shield

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/a11ywatch/kit"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an ID, taken from RequestIDHeader when the
// client sent a short one, else random. The ID is stored with
// kit.WithRequestID, echoed in the response and attached to a per-request
// logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			b := make([]byte, 8)
			rand.Read(b)
			id = hex.EncodeToString(b)
		}

		ctx := kit.WithRequestID(r.Context(), id)
		w.Header().Set(RequestIDHeader, id)

		logger := slog.Default().With(
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
		)
		ctx = context.WithValue(ctx, LoggerKey, logger)
		logger.Debug("request")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
