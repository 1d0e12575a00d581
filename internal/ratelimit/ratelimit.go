// Package ratelimit counts ingestion attempts per client fingerprint in a fixed window.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Decision результат проверки лимита
type Decision struct {
	Allowed bool
	Count   int
	Limit   int
}

// Limiter admits a request when fewer than the limit were seen for key within the window.
// Every admitted request restarts the window for its key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Fingerprint hashes the client address and the first 20 characters of its user agent.
func Fingerprint(ip, userAgent string) string {
	if ip == "" {
		ip = "unknown"
	}
	if userAgent == "" {
		userAgent = "unknown"
	}
	if len(userAgent) > 20 {
		userAgent = userAgent[:20]
	}
	sum := sha256.Sum256([]byte(ip + "_" + userAgent))
	return hex.EncodeToString(sum[:])
}

type memoryLimiter struct {
	mu     sync.Mutex
	counts *expirable.LRU[string, int]
	limit  int
}

// NewMemoryLimiter keeps at most size fingerprints in process memory.
func NewMemoryLimiter(limit, size int, window time.Duration) Limiter {
	return &memoryLimiter{
		counts: expirable.NewLRU[string, int](size, nil, window),
		limit:  limit,
	}
}

func (l *memoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count, _ := l.counts.Get(key)
	if count >= l.limit {
		return Decision{Allowed: false, Count: count, Limit: l.limit}, nil
	}
	// Add перезапускает TTL ключа
	l.counts.Add(key, count+1)
	return Decision{Allowed: true, Count: count + 1, Limit: l.limit}, nil
}

type redisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisLimiter shares counters between instances through Redis.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) Limiter {
	return &redisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "onboarding:rate:",
		logger: logger,
	}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.prefix + key

	count, err := l.client.Get(ctx, k).Int()
	if err != nil && err != redis.Nil {
		l.logger.Error("failed to read rate counter", zap.String("fingerprint", key), zap.Error(err))
		return Decision{}, fmt.Errorf("failed to read rate counter: %w", err)
	}
	if count >= l.limit {
		return Decision{Allowed: false, Count: count, Limit: l.limit}, nil
	}

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Error("failed to increment rate counter", zap.String("fingerprint", key), zap.Error(err))
		return Decision{}, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	return Decision{Allowed: true, Count: int(incr.Val()), Limit: l.limit}, nil
}
