package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/richxcame/rideplanner/pkg/logger"
	"github.com/richxcame/rideplanner/pkg/security"
)

// maxLoggedPayload bounds logged bodies; route responses carry whole polylines.
const maxLoggedPayload = 512

type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *bodyRecorder) Write(data []byte) (int, error) {
	r.capture(data)
	return r.ResponseWriter.Write(data)
}

func (r *bodyRecorder) WriteString(data string) (int, error) {
	r.capture([]byte(data))
	return r.ResponseWriter.WriteString(data)
}

func (r *bodyRecorder) capture(data []byte) {
	if room := maxLoggedPayload*4 - r.body.Len(); room > 0 {
		if len(data) > room {
			data = data[:room]
		}
		r.body.Write(data)
	}
}

// RequestLogger logs one line per request. Requests to quietPaths (probes,
// metrics scrapes) are logged at debug level, and WebSocket upgrades are
// logged without bodies.
func RequestLogger(serviceName string, quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		upgrade := strings.EqualFold(c.GetHeader("Upgrade"), "websocket")

		var requestBody string
		var recorder *bodyRecorder
		if !upgrade {
			requestBody = captureRequestBody(c)
			recorder = &bodyRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
			c.Writer = recorder
		}

		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("service", serviceName),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("response_size", c.Writer.Size()),
		}
		if upgrade {
			fields = append(fields, zap.Bool("websocket", true))
		}
		if requestBody != "" {
			fields = append(fields, zap.String("request_body", requestBody))
		}
		if recorder != nil && status >= http.StatusBadRequest {
			if responseBody := sanitizePayload(recorder.body.Bytes()); responseBody != "" {
				fields = append(fields, zap.String("response_body", responseBody))
			}
		}

		reqLogger := logger.WithContext(c.Request.Context())
		switch {
		case len(c.Errors) > 0:
			fields = append(fields, zap.String("errors", c.Errors.String()))
			reqLogger.Error("Request completed with errors", fields...)
		case status >= http.StatusInternalServerError:
			reqLogger.Error("Request failed", fields...)
		default:
			if _, ok := quiet[path]; ok {
				reqLogger.Debug("Request completed", fields...)
				return
			}
			reqLogger.Info("Request completed", fields...)
		}
	}
}

func captureRequestBody(c *gin.Context) string {
	if c.Request == nil || c.Request.Body == nil {
		return ""
	}

	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}

	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	return sanitizePayload(bodyBytes)
}

func sanitizePayload(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}

	sanitized := security.SanitizeString(security.StripHTMLTags(string(payload)))
	sanitized = security.NormalizeWhitespace(sanitized)
	if truncated := security.TruncateString(sanitized, maxLoggedPayload); truncated != sanitized {
		return truncated + "...(truncated)"
	}
	return sanitized
}
