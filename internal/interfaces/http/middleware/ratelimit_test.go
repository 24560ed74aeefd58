package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(3)
	rl.now = func() time.Time { return now }

	for range 3 {
		assert.True(t, rl.Allow("10.0.0.1"))
	}
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "keys are independent")
	assert.Equal(t, 0, rl.Remaining("10.0.0.1"))
	assert.Equal(t, 3, rl.Remaining("10.0.0.9"))

	now = now.Add(20 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "one token refills every 20s")

	now = now.Add(11 * time.Minute)
	assert.Equal(t, 2, rl.Cleanup())
	assert.Equal(t, 3, rl.Remaining("10.0.0.1"))
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1)
	r := gin.New()
	r.POST("/transfer", RateLimit(rl), okHandler)

	w := serve(r, httptest.NewRequest(http.MethodPost, "/transfer", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = serve(r, httptest.NewRequest(http.MethodPost, "/transfer", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")
}
