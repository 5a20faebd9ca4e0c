package auth

import (
	"context"
)

// Caller is the authenticated identity of a request. It is stored by value;
// handlers get a copy and cannot change what later handlers see.
type Caller struct {
	ID    string
	Email string
}

type callerKey struct{}

type clientIPKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller attached by RequireAccessToken.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	if !ok || c.ID == "" {
		return Caller{}, false
	}
	return c, true
}

// WithClientIP attaches the client IP resolved by the router so the service
// layer can throttle and audit without depending on HTTP types.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(clientIPKey{}).(string); ok {
		return s
	}
	return ""
}
