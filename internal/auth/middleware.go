package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"tasky-api/internal/metrics"
	"tasky-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// IdentityResolver maps a verified token subject to a live identity.
// It returns ErrUnauthenticated when the subject no longer exists.
type IdentityResolver interface {
	Resolve(ctx context.Context, subject string) (Caller, error)
}

// RequireAccessToken verifies the bearer token, resolves its subject and
// attaches the Caller to the request context. Every rejection answers the
// same 401 body; the reason is only logged.
// It does not perform ownership checks; those belong to internal/ownership.
func RequireAccessToken(m *Manager, resolver IdentityResolver, met *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromGin(c)

		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			met.ObserveTokenRejected("missing")
			abortUnauthenticated(c)
			return
		}
		tok := strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
		if tok == "" {
			met.ObserveTokenRejected("missing")
			abortUnauthenticated(c)
			return
		}

		claims, err := m.Verify(tok, time.Now())
		if err != nil {
			reason := rejectionReason(err)
			met.ObserveTokenRejected(reason)
			log.Warn("bearer token rejected", "reason", reason, "err", err)
			abortUnauthenticated(c)
			return
		}

		caller, err := resolver.Resolve(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				met.ObserveTokenRejected("unknown_subject")
				log.Warn("bearer token subject not found", "user_id", claims.Subject)
				abortUnauthenticated(c)
				return
			}
			log.Error("resolve token subject failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		ctx := WithCaller(c.Request.Context(), caller)
		ctx = logger.With(ctx, log.With("user_id", caller.ID))
		c.Request = c.Request.WithContext(ctx)

		// Also store on gin context for handler convenience.
		c.Set("user_id", caller.ID)

		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthenticated.Error()})
}
