package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter counts events per key over a sliding window, one Redis sorted set
// per key with event timestamps as scores. It guards the coupon validation
// endpoint against code guessing.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow records one attempt under key and reports whether the caller is still
// inside the window limit. A nil client or non-positive limit disables the
// check entirely.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	now := time.Now()
	reset := now.Add(window)
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, reset, nil
	}

	bucket := l.Prefix + key
	oldest := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	// Trim, record, and count in one round trip. The TTL keeps idle buckets
	// from accumulating forever.
	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, bucket, "-inf", "("+oldest)
	pipe.ZAdd(ctx, bucket, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	count := pipe.ZCard(ctx, bucket)
	pipe.Expire(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, reset, err
	}

	used := int(count.Val())
	remaining := max - used
	if remaining < 0 {
		remaining = 0
	}
	return used <= max, remaining, reset, nil
}
