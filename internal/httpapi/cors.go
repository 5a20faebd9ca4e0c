package httpapi

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the configured origins, compared case-insensitively. "*"
// allows every origin without credentials. Cross-origin requests from any
// other origin are refused with 403.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        10 * time.Minute,
	}

	var origins []string
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
		if origin != "" {
			origins = append(origins, origin)
		}
	}

	cfg.AllowCredentials = true
	cfg.AllowOriginFunc = func(origin string) bool {
		for _, o := range origins {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
	return cors.New(cfg)
}
