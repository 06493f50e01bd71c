// Package ctxutil carries request-scoped values shared by the http and
// handlers packages. It has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

type requestIDKey struct{}

type clientKey struct{}

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id, or "" if not set.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithClient returns a context carrying the authenticated client id
// (the API key hash prefix).
func WithClient(ctx context.Context, client string) context.Context {
	return context.WithValue(ctx, clientKey{}, client)
}

// Client returns the authenticated client id, or "" for anonymous requests.
func Client(ctx context.Context) string {
	v, _ := ctx.Value(clientKey{}).(string)
	return v
}
