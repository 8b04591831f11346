package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"social-feed-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimiter 判断指定调用方在当前时间窗口内是否还能继续请求。
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryRateLimiter 是进程内的固定窗口限流器，max <= 0 时不限流。
type MemoryRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	max     int
	window  time.Duration
	now     func() time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
}

// NewMemoryRateLimiter 创建一个新的进程内限流器。
func NewMemoryRateLimiter(max int, window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		buckets: make(map[string]*bucket),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.max <= 0 {
		return true, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		l.buckets[key] = &bucket{count: 1, resetAt: now.Add(l.window)}
		l.sweep(now)
		return true, nil
	}
	if b.count >= l.max {
		return false, nil
	}
	b.count++
	return true, nil
}

// sweep 清理已过期的窗口，避免 key 无限增长。
func (l *MemoryRateLimiter) sweep(now time.Time) {
	if len(l.buckets) < 1024 {
		return
	}
	for k, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, k)
		}
	}
}

// RedisRateLimiter 使用 INCR + EXPIRE 实现多实例共享的固定窗口限流。
type RedisRateLimiter struct {
	redisClient *redis.Client
	prefix      string
	max         int
	window      time.Duration
}

// NewRedisRateLimiter 创建一个新的 Redis 限流器。
func NewRedisRateLimiter(redisClient *redis.Client, prefix string, max int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{redisClient: redisClient, prefix: prefix, max: max, window: window}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.max <= 0 {
		return true, nil
	}
	redisKey := fmt.Sprintf("ratelimit:%s:%s", l.prefix, key)
	count, err := l.redisClient.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		_ = l.redisClient.Expire(ctx, redisKey, l.window).Err()
	}
	return count <= int64(l.max), nil
}

// RateLimit 创建一个按调用方限流的 Gin 中间件，已登录时按用户 ID，否则按客户端 IP。
// 限流器出错时放行请求。
func RateLimit(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if id, ok := c.Get(ContextUserIDKey); ok {
			key = fmt.Sprintf("user:%v", id)
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warnf("[RateLimit] 限流器异常, 放行请求, key: %s, error: %v", key, err)
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later."})
			return
		}
		c.Next()
	}
}
