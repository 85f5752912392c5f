package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS builds the cross-origin policy from a comma-separated origin list.
// "*" allows any origin (without credentials).
func CORS(origins string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	allowed := make([]string, 0)
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			allowed = append(allowed, trimmed)
		}
	}

	switch {
	case len(allowed) == 0:
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
		corsConfig.AllowCredentials = true
	case len(allowed) == 1 && allowed[0] == "*":
		corsConfig.AllowAllOrigins = true
	default:
		corsConfig.AllowOrigins = allowed
		corsConfig.AllowCredentials = true
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", CorrelationIDHeader, LegacyCorrelationIDHeader}
	corsConfig.ExposeHeaders = []string{CorrelationIDHeader, "X-Trace-ID"}
	corsConfig.MaxAge = 12 * time.Hour

	return cors.New(corsConfig)
}
