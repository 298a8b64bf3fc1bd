// Package redis opens the shared go-redis client used by sessions, carts,
// the query cache and auth-state pub/sub.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type Client struct {
	*goredis.Client
}

// New connects to redis and pings it before returning. Pub/sub
// subscriptions hold their own connections, so the pool is sized above
// the go-redis default.
func New(ctx context.Context, addr, password string) (*Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		PoolSize:     50,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	c := &Client{Client: client}
	if err := c.Check(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: %s: %w", addr, err)
	}

	return c, nil
}

// Check pings the server with a short deadline.
func (c *Client) Check(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.Ping(pingCtx).Err()
}
