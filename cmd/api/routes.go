package main

import (
	"log/slog"

	"tasky-api/internal/config"
	"tasky-api/internal/httpapi"
	"tasky-api/internal/metrics"
	"tasky-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// newRouter builds the engine with the cross-cutting middleware chain.
// Keep this file free of business logic; API routes live in httpapi.Register.
func newRouter(log *slog.Logger, cfg config.Config, met *metrics.Metrics) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.App.TrustedProxies); err != nil {
		log.Warn("invalid TRUSTED_PROXIES, trusting none", "err", err)
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log, "/healthz", "/metrics"))
	r.Use(met.Middleware())
	r.Use(httpapi.CORS(cfg.App.CORSOrigins))

	r.GET("/metrics", gin.WrapH(met.Handler()))
	return r
}
