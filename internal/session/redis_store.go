package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session in a hash that expires with the session.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:",
	}
}

// record is the hash layout; times are unix milliseconds.
type record struct {
	UserID            string `redis:"user_id"`
	Email             string `redis:"email"`
	CreatedAt         int64  `redis:"created_at"`
	AbsoluteExpiresAt int64  `redis:"absolute_expires_at"`
	ExpiresAt         int64  `redis:"expires_at"`
}

func toRecord(s Session) record {
	return record{
		UserID:            s.UserID,
		Email:             s.Email,
		CreatedAt:         unixMilli(s.CreatedAt),
		AbsoluteExpiresAt: unixMilli(s.AbsoluteExpiresAt),
		ExpiresAt:         unixMilli(s.ExpiresAt),
	}
}

func (rec record) session(sessionID string) Session {
	return Session{
		SessionID:         sessionID,
		UserID:            rec.UserID,
		Email:             rec.Email,
		CreatedAt:         fromUnixMilli(rec.CreatedAt),
		AbsoluteExpiresAt: fromUnixMilli(rec.AbsoluteExpiresAt),
		ExpiresAt:         fromUnixMilli(rec.ExpiresAt),
	}
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisStore) Create(ctx context.Context, s Session) error {
	if s.SessionID == "" || s.UserID == "" {
		return fmt.Errorf("session: missing session_id or user_id")
	}
	if !s.ExpiresAt.After(time.Now()) {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	return r.put(ctx, s)
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	res := r.client.HGetAll(ctx, r.key(sessionID))
	fields, err := res.Result()
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}
	// missing keys come back as an empty hash
	if len(fields) == 0 {
		return nil, nil
	}

	var rec record
	if err := res.Scan(&rec); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}

	s := rec.session(sessionID)
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

// Update rewrites an existing session. Sessions already past ExpiresAt
// are removed rather than extended, and a session deleted concurrently
// (logout) is not brought back.
func (r *RedisStore) Update(ctx context.Context, s Session) error {
	if s.SessionID == "" {
		return fmt.Errorf("session: missing session_id")
	}
	if !s.ExpiresAt.After(time.Now()) {
		return r.Delete(ctx, s.SessionID)
	}

	key := r.key(s.SessionID)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil || n == 0 {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			writeRecord(ctx, pipe, key, s)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// changed underneath us; the other writer wins
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: update: %w", err)
	}
	return nil
}

func (r *RedisStore) put(ctx context.Context, s Session) error {
	key := r.key(s.SessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		writeRecord(ctx, pipe, key, s)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: put: %w", err)
	}
	return nil
}

func writeRecord(ctx context.Context, pipe redis.Pipeliner, key string, s Session) {
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, toRecord(s))
	pipe.ExpireAt(ctx, key, s.ExpiresAt)
}
