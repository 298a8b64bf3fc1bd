package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const cartTTL = 30 * 24 * time.Hour

// setIfPresent updates a hash field only when it already exists.
var setIfPresent = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 1 then
	redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
	redis.call("PEXPIRE", KEYS[1], ARGV[3])
	return 1
end
return 0
`)

// RedisStore keeps each cart in a hash: field = product id, value = quantity.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "cart:"}
}

func (r *RedisStore) key(cartID string) string {
	return r.prefix + cartID
}

func (r *RedisStore) Items(ctx context.Context, cartID string) ([]Item, error) {
	fields, err := r.client.HGetAll(ctx, r.key(cartID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cart: items: %w", err)
	}

	items := make([]Item, 0, len(fields))
	for productID, raw := range fields {
		q, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		items = append(items, Item{ProductID: productID, Quantity: q})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	return items, nil
}

func (r *RedisStore) Get(ctx context.Context, cartID, productID string) (*Item, error) {
	q, err := r.client.HGet(ctx, r.key(cartID), productID).Int()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: get: %w", err)
	}
	return &Item{ProductID: productID, Quantity: q}, nil
}

func (r *RedisStore) Add(ctx context.Context, cartID, productID string) (Item, error) {
	key := r.key(cartID)

	var existing *redis.StringCmd
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSetNX(ctx, key, productID, MinQuantity)
		existing = p.HGet(ctx, key, productID)
		p.Expire(ctx, key, cartTTL)
		return nil
	})
	if err != nil {
		return Item{}, fmt.Errorf("cart: add: %w", err)
	}

	q, err := existing.Int()
	if err != nil {
		return Item{}, fmt.Errorf("cart: add: %w", err)
	}
	return Item{ProductID: productID, Quantity: q}, nil
}

func (r *RedisStore) SetQuantity(ctx context.Context, cartID, productID string, quantity int) (Item, error) {
	ok, err := setIfPresent.Run(
		ctx,
		r.client,
		[]string{r.key(cartID)},
		productID,
		quantity,
		cartTTL.Milliseconds(),
	).Int()
	if err != nil {
		return Item{}, fmt.Errorf("cart: set quantity: %w", err)
	}
	if ok == 0 {
		return Item{}, ErrNotInCart
	}
	return Item{ProductID: productID, Quantity: quantity}, nil
}

func (r *RedisStore) Remove(ctx context.Context, cartID, productID string) error {
	return r.client.HDel(ctx, r.key(cartID), productID).Err()
}
