package authsess

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a request correlation ID to ctx. The bundled
// [api] repository sends it as the X-Request-ID header instead of
// generating one, and [*StatusError] echoes it back on failures so
// client logs line up with backend logs.
//
//	Docs: docs/session.md
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the request ID set by [WithRequestID],
// or "" when none is present. Custom [Repository] implementations can
// use it to propagate correlation IDs over their own transport.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}
