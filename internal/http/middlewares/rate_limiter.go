package middlewares

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	localEntryTTL        = 10 * time.Minute
	localCleanupInterval = 5 * time.Minute
)

// RateLimiter enforces a GCRA policy through redis so all instances share one
// budget. Without redis, or when redis errors, it degrades to a per-process
// token bucket instead of refusing traffic.
type RateLimiter struct {
	limiter  *redis_rate.Limiter // nil when redis is not configured
	fallback *localLimiter
	limit    redis_rate.Limit
	log      *slog.Logger
}

func NewRateLimiter(rdb *redis.Client, log *slog.Logger, limit redis_rate.Limit) *RateLimiter {
	rl := &RateLimiter{
		fallback: newLocalLimiter(limit),
		limit:    limit,
		log:      log,
	}

	if rdb != nil {
		rl.limiter = redis_rate.NewLimiter(rdb)
	}

	return rl
}

// PerWindow describes "n requests every window" in redis_rate terms.
func PerWindow(requests int, window time.Duration) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   requests,
		Burst:  requests,
		Period: window,
	}
}

func (rl *RateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = "ip:" + clientIP(c)
		}

		res := rl.allow(c.Request.Context(), key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit.Rate))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.resetAfter).Unix(), 10))

		if !res.allowed {
			retryAfter := int(res.retryAfter/time.Second) + 1

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":      "rate_limited",
					"message":   "Too many requests. Please try again shortly.",
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}

		c.Next()
	}
}

type allowResult struct {
	allowed    bool
	remaining  int
	retryAfter time.Duration
	resetAfter time.Duration
}

func (rl *RateLimiter) allow(ctx context.Context, key string) allowResult {
	if rl.limiter != nil {
		res, err := rl.limiter.Allow(ctx, key, rl.limit)

		if err == nil {
			return allowResult{
				allowed:    res.Allowed > 0,
				remaining:  res.Remaining,
				retryAfter: res.RetryAfter,
				resetAfter: res.ResetAfter,
			}
		}

		// fail open onto the local bucket rather than blocking all traffic
		rl.log.Warn("rate limiter falling back to local buckets", "error", err)
	}

	return rl.fallback.allow(key)
}

// localLimiter holds one token bucket per key, pruned after inactivity.
type localLimiter struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	every   rate.Limit
	burst   int
	window  time.Duration
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLocalLimiter(limit redis_rate.Limit) *localLimiter {
	l := &localLimiter{
		entries: make(map[string]*localEntry),
		every:   rate.Every(limit.Period / time.Duration(limit.Rate)),
		burst:   limit.Burst,
		window:  limit.Period,
	}

	go l.cleanupLoop()

	return l
}

func (l *localLimiter) allow(key string) allowResult {
	l.mu.Lock()

	e, ok := l.entries[key]

	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(l.every, l.burst)}
		l.entries[key] = e
	}

	e.lastSeen = time.Now()
	l.mu.Unlock()

	r := e.limiter.Reserve()

	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return allowResult{
			allowed:    false,
			retryAfter: delay,
			resetAfter: l.window,
		}
	}

	remaining := int(e.limiter.Tokens())

	if remaining < 0 {
		remaining = 0
	}

	return allowResult{
		allowed:    true,
		remaining:  remaining,
		resetAfter: l.window,
	}
}

func (l *localLimiter) cleanupLoop() {
	ticker := time.NewTicker(localCleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-localEntryTTL)

		l.mu.Lock()
		for key, e := range l.entries {
			if e.lastSeen.Before(cutoff) {
				delete(l.entries, key)
			}
		}
		l.mu.Unlock()
	}
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

// For authenticated endpoints: rate limit by userID if available

func KeyByUserOrIP(c *gin.Context) string {
	id, ok := UserIDFromContext(c)

	if ok && id != "" {
		return "user:" + id
	}

	return "ip:" + clientIP(c)
}

func clientIP(c *gin.Context) string {
	// gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
