package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/rideplanner/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCorrelationID_GeneratesWhenMissing(t *testing.T) {
	var seen string
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/", func(c *gin.Context) {
		seen = logger.CorrelationIDFromContext(c.Request.Context())
		assert.Equal(t, seen, GetCorrelationID(c))
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, w.Header().Get(CorrelationIDHeader))
}

func TestCorrelationID_ReplacesInvalidHeader(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	valid := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, valid)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, valid, w.Header().Get(CorrelationIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "<script>")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get(CorrelationIDHeader))
}

func TestCorrelationID_AcceptsOpaqueAndLegacyHeaders(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "edge-7f3a9c21")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "edge-7f3a9c21", w.Header().Get(CorrelationIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(LegacyCorrelationIDHeader, "mobile.session.42")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "mobile.session.42", w.Header().Get(CorrelationIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "short")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	_, err := uuid.Parse(w.Header().Get(CorrelationIDHeader))
	assert.NoError(t, err)
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	original := logger.Get()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(original) })
	return recorded
}

func TestRequestLogger_Levels(t *testing.T) {
	logs := observeLogs(t)

	router := gin.New()
	router.Use(RequestLogger("planner", "/healthz"))
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.PUT("/planner/departure", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	req := httptest.NewRequest(http.MethodPut, "/planner/departure", strings.NewReader(`{"text":""}`))
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	fields := entries[1].ContextMap()
	assert.Equal(t, "/planner/departure", fields["route"])
	assert.Equal(t, `{"text":""}`, fields["request_body"])
	assert.Contains(t, fields["response_body"], "text is required")
}

func TestRequestLogger_SkipsSuccessfulResponseBodies(t *testing.T) {
	logs := observeLogs(t)

	router := gin.New()
	router.Use(RequestLogger("planner"))
	router.POST("/planner/routes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"routes": strings.Repeat("x", 4096)})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/planner/routes", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, w.Body.Len(), 4096)

	entries := logs.All()
	require.Len(t, entries, 1)
	_, logged := entries[0].ContextMap()["response_body"]
	assert.False(t, logged)
}

func TestSanitizePayload_TruncatesOnRunes(t *testing.T) {
	out := sanitizePayload([]byte(strings.Repeat("é", maxLoggedPayload+10)))
	assert.True(t, strings.HasSuffix(out, "...(truncated)"))
	assert.Equal(t, maxLoggedPayload, len([]rune(strings.TrimSuffix(out, "...(truncated)"))))
}

func TestSanitizeRequest_CleansJSONStrings(t *testing.T) {
	var received string
	router := gin.New()
	router.Use(SanitizeRequest())
	router.PUT("/departure", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		received = string(body)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPut, "/departure", strings.NewReader(`{"text":"  Monas<script>x</script>  Jakarta "}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.JSONEq(t, `{"text":"Monas Jakarta"}`, received)
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	router := gin.New()
	router.Use(CORS("http://localhost:3000, https://planner.example.com"))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://planner.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "https://planner.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMetricsAndLoggerPassThrough(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID(), RequestLogger("test"), Metrics("test"))
	router.GET("/state", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/state", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}
