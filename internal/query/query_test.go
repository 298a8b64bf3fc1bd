package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	return d, ok, nil
}

func (m *memBackend) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	m.ttls[key] = ttl
	return nil
}

func (m *memBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type item struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func TestFetchCachesSuccess(t *testing.T) {
	backend := newMemBackend()
	c := New(backend, time.Minute)

	var calls atomic.Int32
	fetch := func(context.Context) (item, error) {
		calls.Add(1)
		return item{Name: "mug", Price: 999}, nil
	}

	first := Fetch(context.Background(), c, "product:mug", fetch)
	second := Fetch(context.Background(), c, "product:mug", fetch)

	assert.Equal(t, StatusSuccess, first.Status)
	assert.Equal(t, item{Name: "mug", Price: 999}, first.Data)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, time.Minute, backend.ttls["product:mug"])
	assert.Equal(t, StatusSuccess, c.Peek(context.Background(), "product:mug"))
}

func TestFetchErrorIsNotCached(t *testing.T) {
	c := New(newMemBackend(), time.Minute)
	boom := errors.New("boom")

	var calls atomic.Int32
	fetch := func(context.Context) (item, error) {
		if calls.Add(1) == 1 {
			return item{}, boom
		}
		return item{Name: "ok"}, nil
	}

	res := Fetch(context.Background(), c, "k", fetch)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "boom", res.Error)
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, StatusIdle, c.Peek(context.Background(), "k"))

	res = Fetch(context.Background(), c, "k", fetch)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "ok", res.Data.Name)
}

func TestFetchCollapsesConcurrentCallers(t *testing.T) {
	c := New(newMemBackend(), time.Minute)

	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) ([]item, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return []item{{Name: "a"}, {Name: "b"}}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Result[[]item], callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Fetch(context.Background(), c, "list", fetch)
		}(i)
	}

	<-started
	assert.Equal(t, StatusLoading, c.Peek(context.Background(), "list"))
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, StatusSuccess, r.Status)
		assert.Len(t, r.Data, 2)
	}
}

func TestFetchCallerCancellation(t *testing.T) {
	c := New(newMemBackend(), time.Minute)

	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Fetch(ctx, c, "slow", func(context.Context) (item, error) {
		<-release
		return item{Name: "late"}, nil
	})
	assert.Equal(t, StatusError, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		return c.Peek(context.Background(), "slow") == StatusSuccess
	}, time.Second, 5*time.Millisecond)
}

func TestInvalidate(t *testing.T) {
	c := New(newMemBackend(), time.Minute)

	n := 0
	fetch := func(context.Context) (int, error) {
		n++
		return n, nil
	}

	assert.Equal(t, 1, Fetch(context.Background(), c, "reviews:mug", fetch).Data)
	assert.Equal(t, 1, Fetch(context.Background(), c, "reviews:mug", fetch).Data)

	require.NoError(t, c.Invalidate(context.Background(), "reviews:mug"))
	assert.Equal(t, 2, Fetch(context.Background(), c, "reviews:mug", fetch).Data)

	assert.NoError(t, c.Invalidate(context.Background()))
}

func TestInvalidateDuringFetchDropsStaleResult(t *testing.T) {
	backend := newMemBackend()
	c := New(backend, time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	stale := make(chan Result[string], 1)

	go func() {
		stale <- Fetch(context.Background(), c, "reviews:mug", func(context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()

	<-started
	require.NoError(t, c.Invalidate(context.Background(), "reviews:mug"))
	close(release)

	// the caller that started before the write still gets its own answer
	assert.Equal(t, "old", (<-stale).Data)

	_, cached, _ := backend.Get(context.Background(), "reviews:mug")
	assert.False(t, cached, "result fetched before the invalidation must not be stored")

	fresh := Fetch(context.Background(), c, "reviews:mug", func(context.Context) (string, error) {
		return "new", nil
	})
	assert.Equal(t, "new", fresh.Data)

	again := Fetch(context.Background(), c, "reviews:mug", func(context.Context) (string, error) {
		return "unexpected", nil
	})
	assert.Equal(t, "new", again.Data)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "reviews:mug", Key("reviews", "mug"))
	assert.Equal(t, "product", Key("product"))
}
