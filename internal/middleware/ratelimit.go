package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/pkg/response"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more request under key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit guards routes with one limiter key per client IP. retryAfter is
// advertised on rejections. Limiter failures let the request through.
func RateLimit(limiter Limiter, name string, retryAfter time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" || limiter == nil {
			c.Next()
			return
		}

		ok, err := limiter.Allow(c.Request.Context(), name+":"+ip)
		if err != nil {
			if log != nil {
				log.Warn("rate limiter unavailable", zap.String("limiter", name), zap.Error(err))
			}
			c.Next()
			return
		}
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			response.TooManyRequests(c)
			return
		}

		c.Next()
	}
}

// Counter counts hits inside a fixed window. The redis client implements it.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// WindowLimiter allows max hits per fixed window on a shared Counter, so every
// process behind the same redis sees one budget.
type WindowLimiter struct {
	counter Counter
	max     int64
	window  time.Duration
}

func NewWindowLimiter(counter Counter, max int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{counter: counter, max: int64(max), window: window}
}

func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().UnixNano() / int64(l.window)
	count, err := l.counter.IncrWindow(ctx, fmt.Sprintf("qalam:rate_limit:%s:%d", key, bucket), l.window+time.Second)
	if err != nil {
		return false, err
	}
	return count <= l.max, nil
}

const maxMemoryLimiters = 10000

// MemoryLimiter is a per-key token bucket for a single process: a burst of max,
// refilled at max per window.
type MemoryLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max < 1 {
		max = 1
	}
	return &MemoryLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Every(window / time.Duration(max)),
		burst:    max,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.get(key).Allow(), nil
}

func (l *MemoryLimiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok = l.limiters[key]; ok {
		return limiter
	}
	if len(l.limiters) >= maxMemoryLimiters {
		l.limiters = make(map[string]*rate.Limiter)
	}
	limiter = rate.NewLimiter(l.rate, l.burst)
	l.limiters[key] = limiter
	return limiter
}
