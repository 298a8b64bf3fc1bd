package cart

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStoreAddKeepsExistingQuantity(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	item, err := store.Add(ctx, "c1", "mug")
	require.NoError(t, err)
	assert.Equal(t, Item{ProductID: "mug", Quantity: MinQuantity}, item)
	assert.Equal(t, cartTTL, mr.TTL("cart:c1"))

	mr.HSet("cart:c1", "mug", "7")

	item, err = store.Add(ctx, "c1", "mug")
	require.NoError(t, err)
	assert.Equal(t, 7, item.Quantity, "HSETNX must not reset the quantity")
}

func TestRedisStoreSetQuantity(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	_, err := store.SetQuantity(ctx, "c1", "mug", 3)
	assert.ErrorIs(t, err, ErrNotInCart)
	assert.False(t, mr.Exists("cart:c1"), "missing lines are not created")

	_, err = store.Add(ctx, "c1", "mug")
	require.NoError(t, err)
	mr.SetTTL("cart:c1", cartTTL/2)

	item, err := store.SetQuantity(ctx, "c1", "mug", 3)
	require.NoError(t, err)
	assert.Equal(t, Item{ProductID: "mug", Quantity: 3}, item)
	assert.Equal(t, "3", mr.HGet("cart:c1", "mug"))
	assert.Equal(t, cartTTL, mr.TTL("cart:c1"), "writes refresh the cart TTL")

	_, err = store.SetQuantity(ctx, "c1", "shirt", 2)
	assert.ErrorIs(t, err, ErrNotInCart)
	assert.Empty(t, mr.HGet("cart:c1", "shirt"))
}

func TestRedisStoreItemsGetRemove(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	mr.HSet("cart:c1", "shirt", "2")
	mr.HSet("cart:c1", "mug", "1")
	mr.HSet("cart:c1", "broken", "many")

	items, err := store.Items(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []Item{{ProductID: "mug", Quantity: 1}, {ProductID: "shirt", Quantity: 2}}, items)

	item, err := store.Get(ctx, "c1", "shirt")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 2, item.Quantity)

	require.NoError(t, store.Remove(ctx, "c1", "shirt"))
	item, err = store.Get(ctx, "c1", "shirt")
	require.NoError(t, err)
	assert.Nil(t, item)

	items, err = store.Items(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, items)
}
