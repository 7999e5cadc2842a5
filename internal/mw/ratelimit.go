package mw

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// IPRateLimiter stores a token bucket per client IP. Buckets of clients that
// stay quiet for idle are evicted.
type IPRateLimiter struct {
	ips *cache.Cache
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

// NewIPRateLimiter creates a limiter allowing r requests per second with
// burst b for every client.
func NewIPRateLimiter(r rate.Limit, b int, idle time.Duration) *IPRateLimiter {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &IPRateLimiter{
		ips: cache.New(idle, idle),
		r:   r,
		b:   b,
	}
}

// GetLimiter returns the bucket for ip, creating it on first use. Every call
// extends the bucket's idle deadline.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, ok := i.ips.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(i.r, i.b)
	}
	i.ips.SetDefault(ip, limiter)
	return limiter.(*rate.Limiter)
}

// Clients returns the number of tracked client IPs.
func (i *IPRateLimiter) Clients() int {
	return i.ips.ItemCount()
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := limiter.GetLimiter(c.ClientIP())
		if !l.Allow() {
			if l.Limit() > 0 {
				retry := max(1, int(1/float64(l.Limit())))
				c.Header("Retry-After", strconv.Itoa(retry))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
