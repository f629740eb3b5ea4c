package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"admin-dashboard/internal/resilience"
)

// Client counts operator mutations per client in Redis. The dashboard never
// caches resource data.
type Client struct {
	rdb     *redis.Client
	breaker *resilience.CircuitBreaker
	limit   int
	window  time.Duration
}

func NewClient(ctx context.Context, addr string, limit int, window time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return newClient(rdb, limit, window), nil
}

func newClient(rdb *redis.Client, limit int, window time.Duration) *Client {
	return &Client{
		rdb:     rdb,
		breaker: resilience.NewCircuitBreaker("redis", 3, 10*time.Second),
		limit:   limit,
		window:  window,
	}
}

// IsRateLimited counts one request for key and reports whether the limit for
// the current window is exceeded. Redis failures fail open.
func (c *Client) IsRateLimited(ctx context.Context, key string) bool {
	var count int64
	err := c.breaker.Execute(func() error {
		pipe := c.rdb.Pipeline()
		incr := pipe.Incr(ctx, "ratelimit:"+key)
		pipe.Expire(ctx, "ratelimit:"+key, c.window)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		count = incr.Val()
		return nil
	})
	if err != nil {
		return false
	}
	return count > int64(c.limit)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
