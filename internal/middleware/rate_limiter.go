package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// IdleTTL drops a client's limiter after this long without requests.
	IdleTTL time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*clientLimiter
	lastCleanup time.Time
	config      RateLimiterConfig
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		config:  config,
	}
}

func (rl *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastCleanup) > rl.config.IdleTTL {
		for k, cl := range rl.clients {
			if now.Sub(cl.lastSeen) > rl.config.IdleTTL {
				delete(rl.clients, k)
			}
		}
		rl.lastCleanup = now
	}

	cl, ok := rl.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP(), time.Now()).Allow() {
			abort(c, apperrors.New("rate_limited", http.StatusTooManyRequests, "Rate limit exceeded."))
			return
		}
		c.Next()
	}
}
