package review

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	reviews map[string]Review // product|user
	clock   time.Time
	err     error
}

func newMemStore() *memStore {
	return &memStore{
		reviews: map[string]Review{},
		clock:   time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) ListForProduct(_ context.Context, productID string) ([]Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []Review
	for _, r := range m.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ForUser(_ context.Context, productID, userID string) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[productID+"|"+userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStore) Upsert(_ context.Context, in Review) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	key := in.ProductID + "|" + in.UserID
	if cur, ok := m.reviews[key]; ok {
		cur.Rating, cur.Message, cur.UpdatedAt = in.Rating, in.Message, m.clock
		m.reviews[key] = cur
		return &cur, nil
	}
	in.ID = key
	in.CreatedAt, in.UpdatedAt = m.clock, m.clock
	m.reviews[key] = in
	return &in, nil
}

func TestWriteValidatesRating(t *testing.T) {
	svc := NewService(newMemStore())

	for _, rating := range []int{0, -1, 6, 100} {
		_, err := svc.Write(context.Background(), "mug", "u1", rating, "nice")
		assert.ErrorIs(t, err, ErrInvalidRating, "rating %d", rating)
	}

	for rating := MinRating; rating <= MaxRating; rating++ {
		_, err := svc.Write(context.Background(), "mug", "u1", rating, "nice")
		assert.NoError(t, err, "rating %d", rating)
	}
}

func TestWriteTrimsAndLimitsMessage(t *testing.T) {
	svc := NewService(newMemStore())

	r, err := svc.Write(context.Background(), "mug", "u1", 4, "  solid mug \n")
	require.NoError(t, err)
	assert.Equal(t, "solid mug", r.Message)

	_, err = svc.Write(context.Background(), "mug", "u1", 4, strings.Repeat("x", maxMessageLen+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)
}

func TestEditKeepsOneReviewPerUser(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	first, err := svc.Write(ctx, "mug", "u1", 2, "meh")
	require.NoError(t, err)

	edited, err := svc.Write(ctx, "mug", "u1", 5, "grew on me")
	require.NoError(t, err)

	assert.Equal(t, first.ID, edited.ID)
	assert.Equal(t, first.CreatedAt, edited.CreatedAt)
	assert.True(t, edited.UpdatedAt.After(first.UpdatedAt))

	mine, err := svc.ForUser(ctx, "mug", "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, mine.Rating)
	assert.Equal(t, "grew on me", mine.Message)

	list, err := svc.ListForProduct(ctx, "mug")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListForProduct(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	empty, err := svc.ListForProduct(ctx, "mug")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, _ = svc.Write(ctx, "mug", "u1", 3, "first")
	_, _ = svc.Write(ctx, "mug", "u2", 4, "second")
	_, _ = svc.Write(ctx, "shirt", "u1", 1, "other product")

	list, err := svc.ListForProduct(ctx, "mug")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message, "newest first")

	none, err := svc.ForUser(ctx, "mug", "u3")
	require.NoError(t, err)
	assert.Nil(t, none)

	store.err = errors.New("db down")
	_, err = svc.ListForProduct(ctx, "mug")
	assert.Error(t, err)
}
