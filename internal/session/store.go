package session

import (
	"context"
	"time"
)

// Session represents an authenticated user session.
// It stores identity pointers only; the user record lives in postgres.
type Session struct {
	SessionID         string    `json:"session_id"`
	UserID            string    `json:"user_id"`
	Email             string    `json:"email,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	AbsoluteExpiresAt time.Time `json:"absolute_expires_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// Expired reports whether the session is past either expiry at now.
func (s Session) Expired(now time.Time) bool {
	if now.After(s.ExpiresAt) {
		return true
	}
	return !s.AbsoluteExpiresAt.IsZero() && now.After(s.AbsoluteExpiresAt)
}

// Deadline is the earlier of the idle and absolute expiries.
func (s Session) Deadline() time.Time {
	if !s.AbsoluteExpiresAt.IsZero() && s.AbsoluteExpiresAt.Before(s.ExpiresAt) {
		return s.AbsoluteExpiresAt
	}
	return s.ExpiresAt
}

// NextExpiry is now+idle, capped at absolute when it is set.
func NextExpiry(now time.Time, idle time.Duration, absolute time.Time) time.Time {
	next := now.Add(idle)
	if !absolute.IsZero() && absolute.Before(next) {
		return absolute
	}
	return next
}

// Store defines how sessions are stored and retrieved.
// Get returns nil, nil for an unknown session.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
}
