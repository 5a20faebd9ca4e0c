package logger

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-Id"

// maxRequestIDLen caps client-supplied ids before they reach logs and headers.
const maxRequestIDLen = 128

// Middleware tags every request with a request id and logs one line per
// request once the handlers ran. The line level follows the status: 5xx at
// error, 4xx at warn, everything else at info. Paths in quiet log at debug.
//
// The request-scoped logger is reachable both via FromGin and via
// From(c.Request.Context()).
func Middleware(l *slog.Logger, quiet ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		rid := requestID(c.GetHeader(HeaderRequestID))
		c.Writer.Header().Set(HeaderRequestID, rid)

		reqLogger := l.With("request_id", rid)
		c.Set("logger", reqLogger)
		c.Request = c.Request.WithContext(With(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"client_ip", c.ClientIP(),
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000,
		}
		if uid := c.GetString("user_id"); uid != "" {
			attrs = append(attrs, "user_id", uid)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch _, isQuiet := skip[path]; {
		case status >= 500 || len(c.Errors) > 0:
			reqLogger.Error("request", attrs...)
		case status >= 400:
			reqLogger.Warn("request", attrs...)
		case isQuiet:
			reqLogger.Debug("request", attrs...)
		default:
			reqLogger.Info("request", attrs...)
		}
	}
}

// requestID keeps a well-formed client id and mints a new one otherwise.
func requestID(h string) string {
	if h == "" || len(h) > maxRequestIDLen {
		return uuid.NewString()
	}
	for i := 0; i < len(h); i++ {
		if b := h[i]; b < 0x21 || b > 0x7e {
			return uuid.NewString()
		}
	}
	return h
}

// FromGin pulls the request-scoped logger from Gin context.
func FromGin(c *gin.Context) *slog.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
