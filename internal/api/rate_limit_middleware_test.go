package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, v := rl.Allow("k", 2, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, 1, v.Remaining)
	ok, _ = rl.Allow("k", 2, time.Minute)
	assert.True(t, ok)
	ok, v = rl.Allow("k", 2, time.Minute)
	assert.False(t, ok)
	assert.Equal(t, 0, v.Remaining)

	// 其他客户端不受影响
	ok, _ = rl.Allow("other", 2, time.Minute)
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	ok, _ = rl.Allow("k", 2, time.Minute)
	assert.True(t, ok)
}

func TestRateLimitMiddlewareRejects(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	r := gin.New()
	r.Use(rl.ByIP(1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), ErrorRateLimited)
}
