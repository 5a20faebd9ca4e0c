// Package throttle limits repeated login attempts per email and client IP.
package throttle

import (
	"context"
	"strings"
)

// Limiter counts attempts against a key within a window.
//
// Allow records one attempt and reports whether it is still within the limit.
// Reset clears the key, typically after a successful login.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// LoginKey derives the limiter key for a login attempt. email is expected to
// be normalized already.
func LoginKey(email, clientIP string) string {
	if clientIP == "" {
		clientIP = "unknown"
	}
	return strings.ToLower(email) + "|" + clientIP
}
