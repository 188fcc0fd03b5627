package middleware

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter counts requests per client IP in fixed windows.
type RateLimiter struct {
	mu           sync.Mutex
	requestCount map[string]int
	limit        int
	window       time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requestCount: make(map[string]int),
		limit:        limit,
		window:       window,
	}
}

// StartReset clears the counters every window until ctx is done.
func (rl *RateLimiter) StartReset(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(rl.window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Reset()
			}
		}
	}()
}

func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	rl.requestCount = make(map[string]int)
	rl.mu.Unlock()
}

func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get client IP
		ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			ip = c.ClientIP()
		}

		rl.mu.Lock()
		rl.requestCount[ip]++
		exceeded := rl.requestCount[ip] > rl.limit
		rl.mu.Unlock()

		if exceeded {
			c.JSON(429, gin.H{
				"error":   "Too Many Requests",
				"message": "Rate limit exceeded. Please wait before making more requests.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Rate limiter instances for the public and the cron routes.
var (
	GlobalRateLimiter = NewRateLimiter(100, 1*time.Minute) // 100 requests per minute
	StrictRateLimiter = NewRateLimiter(10, 1*time.Minute)  // 10 requests per minute for cron triggers
)
