package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/issueless/issueless/pkg/response"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL   = 5 * time.Minute
	limiterSweepTick = 3 * time.Minute
)

// clientLimiter pairs a token bucket with the time it last saw a request, so
// idle clients can be swept.
type clientLimiter struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP. Mounted on the auth endpoints
// to slow down brute-forced authorization codes; rate and burst come from the
// limits config.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) bucketFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[ip]
	if !ok {
		cl = &clientLimiter{bucket: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[ip] = cl
	}
	cl.lastSeen = time.Now()
	return cl.bucket
}

// sweep drops limiters for IPs idle past the TTL.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(limiterSweepTick)
	for range ticker.C {
		rl.mu.Lock()
		for ip, cl := range rl.clients {
			if time.Since(cl.lastSeen) > limiterIdleTTL {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware rejects requests over the per-IP budget with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.bucketFor(c.ClientIP()).Allow() {
			response.TooManyRequests(c, "Too many requests. Please try again later.")
			c.Abort()
			return
		}
		c.Next()
	}
}
