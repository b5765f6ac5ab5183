package kit

import "context"

// Transports that reach an Endpoint.
const (
	TransportHTTP = "http"
	TransportMCP  = "mcp"
)

type (
	transportKey struct{}
	requestIDKey struct{}
)

// WithTransport records which transport carried the call.
func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, transportKey{}, t)
}

// GetTransport returns the transport of the call, TransportHTTP when unset.
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(transportKey{}).(string); ok && v != "" {
		return v
	}
	return TransportHTTP
}

// WithRequestID attaches the id shield assigns to each HTTP request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the request id or "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// LogAttrs returns the request-scoped slog attributes of ctx.
func LogAttrs(ctx context.Context) []any {
	attrs := []any{"transport", GetTransport(ctx)}
	if id := GetRequestID(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	return attrs
}
