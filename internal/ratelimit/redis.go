package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window limiter backed by a shared redis counter, for
// deployments running more than one instance. Same window semantics as
// Memory: INCR on a per-key counter whose TTL is the window period.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
}

// NewRedis creates a redis-backed fixed-window limiter.
func NewRedis(client *redis.Client, prefix string, limit int, period time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		limit:  limit,
		period: period,
	}
}

// Allow implements Limiter. INCR is atomic on the server, so concurrent
// requests across instances cannot lose an increment. The expiry is set
// only when the key is first created, which pins the window start to the
// first request.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := r.prefix + ":" + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: incr %s: %w", redisKey, err)
	}
	if count == 1 {
		if err := r.client.PExpire(ctx, redisKey, r.period).Err(); err != nil {
			return false, fmt.Errorf("ratelimit: expire %s: %w", redisKey, err)
		}
	}

	return count <= int64(r.limit), nil
}
