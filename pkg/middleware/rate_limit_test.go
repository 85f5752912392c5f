package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"

	"github.com/richxcame/rideplanner/pkg/config"
	"github.com/richxcame/rideplanner/pkg/ratelimit"
)

func TestRateLimit_NilLimiterPassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(nil))
	router.POST("/routes", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/routes", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_RejectsWhenBucketEmpty(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := ratelimit.NewLimiter(db, config.RateLimitConfig{
		Enabled:       true,
		WindowSeconds: 60,
		Limit:         6,
		RedisPrefix:   "rl",
	})
	now := time.UnixMilli(1_700_000_000_000)
	limiter.WithNow(func() time.Time { return now })

	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 10, 64) }
	sha := limiter.ScriptHash()
	mock.ExpectEvalSha(sha, []string{"rl:POST:/routes:192.0.2.1"},
		now.UnixMilli(), format(0.0001), format(6), int64(120000)).
		SetVal([]interface{}{int64(0), "0", int64(2400)})

	called := false
	router := gin.New()
	router.Use(RateLimit(limiter))
	router.POST("/routes", func(c *gin.Context) { called = true })

	req := httptest.NewRequest(http.MethodPost, "/routes", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.False(t, called)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, "6", w.Header().Get("X-RateLimit-Limit"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
