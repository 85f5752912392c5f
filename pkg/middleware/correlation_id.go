package middleware

import (
	"regexp"
	"strings"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/richxcame/rideplanner/pkg/logger"
)

const (
	// CorrelationIDHeader carries the request id in and out of the planner
	CorrelationIDHeader = "X-Request-ID"
	// LegacyCorrelationIDHeader is accepted from clients that still send it
	LegacyCorrelationIDHeader = "X-Correlation-ID"
	// CorrelationIDKey is the gin context key for the request id
	CorrelationIDKey = "correlation_id"
)

// ids from browsers and proxies are not always uuids; accept short opaque tokens
var correlationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// CorrelationID takes the caller's request id or mints one, and threads it
// through the request context, the response headers and the Sentry scope.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := incomingCorrelationID(c)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set(CorrelationIDKey, correlationID)
		c.Request = c.Request.WithContext(logger.ContextWithCorrelationID(c.Request.Context(), correlationID))
		c.Writer.Header().Set(CorrelationIDHeader, correlationID)

		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag(CorrelationIDKey, correlationID)
			})
		}

		c.Next()
	}
}

func incomingCorrelationID(c *gin.Context) string {
	for _, header := range []string{CorrelationIDHeader, LegacyCorrelationIDHeader} {
		id := strings.TrimSpace(c.GetHeader(header))
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err == nil || correlationIDPattern.MatchString(id) {
			return id
		}
	}
	return ""
}

// GetCorrelationID extracts correlation ID from gin context
func GetCorrelationID(c *gin.Context) string {
	if id, exists := c.Get(CorrelationIDKey); exists {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	return logger.CorrelationIDFromContext(c.Request.Context())
}
