// Package query caches per-key fetch results and reports them with a
// loading/success/error status.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront/internal/logger"

	"golang.org/x/sync/singleflight"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the outcome of one Fetch.
type Result[T any] struct {
	Status Status `json:"status"`
	Data   T      `json:"data"`
	Error  string `json:"error,omitempty"`

	// Err is the fetch error for callers that need errors.Is.
	Err error `json:"-"`
}

// Backend stores encoded successful results.
type Backend interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Cache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group

	mu       sync.Mutex
	inflight map[string]int

	// genMu orders result writes against Invalidate: a fetch only stores
	// its result if no Invalidate ran since the fetch started.
	genMu sync.Mutex
	gens  map[string]uint64
}

func New(backend Backend, ttl time.Duration) *Cache {
	return &Cache{
		backend:  backend,
		ttl:      ttl,
		inflight: make(map[string]int),
		gens:     make(map[string]uint64),
	}
}

// Key joins parts into a cache key, e.g. Key("product", id).
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Fetch returns the cached value for key or calls fn once for all
// concurrent callers of the same key. Errors are returned, never cached.
func Fetch[T any](
	ctx context.Context,
	c *Cache,
	key string,
	fn func(ctx context.Context) (T, error),
) Result[T] {

	// 1. Cache hit
	if data, ok, err := c.backend.Get(ctx, key); err != nil {
		logger.Warn("query: cache read failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	} else if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return Result[T]{Status: StatusSuccess, Data: v}
		}
		// undecodable entries are refetched and overwritten
	}

	// 2. Shared fetch; the first caller's cancellation must not fail the others
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		c.track(key, 1)
		defer c.track(key, -1)

		gen := c.generation(key)

		v, err := fn(shared)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("query: encode %s: %w", key, err)
		}

		if err := c.store(shared, key, gen, data); err != nil {
			logger.Warn("query: cache write failed", map[string]any{
				"key":   key,
				"error": err.Error(),
			})
		}

		return data, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return failed[T](ctx.Err())
	}
	if res.Err != nil {
		return failed[T](res.Err)
	}

	var v T
	if err := json.Unmarshal(res.Val.([]byte), &v); err != nil {
		return failed[T](fmt.Errorf("query: decode %s: %w", key, err))
	}

	return Result[T]{Status: StatusSuccess, Data: v}
}

func failed[T any](err error) Result[T] {
	return Result[T]{Status: StatusError, Error: err.Error(), Err: err}
}

// Peek reports the key's state without fetching.
func (c *Cache) Peek(ctx context.Context, key string) Status {
	c.mu.Lock()
	n := c.inflight[key]
	c.mu.Unlock()
	if n > 0 {
		return StatusLoading
	}

	if _, ok, err := c.backend.Get(ctx, key); err == nil && ok {
		return StatusSuccess
	}
	return StatusIdle
}

// Invalidate drops cached values so the next Fetch calls through.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	c.genMu.Lock()
	for _, k := range keys {
		c.gens[k]++
		c.group.Forget(k)
	}
	c.genMu.Unlock()

	return c.backend.Delete(ctx, keys...)
}

func (c *Cache) generation(key string) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.gens[key]
}

// store writes data unless key was invalidated after gen was read.
// The write happens under genMu so an Invalidate either sees it and
// deletes it, or bumps the generation first and the write is skipped.
func (c *Cache) store(ctx context.Context, key string, gen uint64, data []byte) error {
	c.genMu.Lock()
	defer c.genMu.Unlock()

	if c.gens[key] != gen {
		return nil
	}
	return c.backend.Set(ctx, key, data, c.ttl)
}

func (c *Cache) track(key string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight[key] += delta
	if c.inflight[key] <= 0 {
		delete(c.inflight, key)
	}
}
