package session

import (
	"context"
	"time"

	"storefront/internal/authstate"
	"storefront/internal/logger"
)

// UserSource resolves session ids to auth-state users and keeps active
// sessions alive. Expired sessions are deleted and reported as signed out.
type UserSource struct {
	store Store
	idle  time.Duration
	now   func() time.Time
}

// NewUserSource serves sessions from store. idle is the sliding window
// Touch extends a session by; the absolute expiry is never passed.
func NewUserSource(store Store, idle time.Duration) *UserSource {
	return &UserSource{store: store, idle: idle, now: time.Now}
}

func (u *UserSource) CurrentUser(
	ctx context.Context,
	sessionID string,
) (*authstate.User, time.Time, error) {

	sess, err := u.live(ctx, sessionID)
	if err != nil || sess == nil {
		return nil, time.Time{}, err
	}

	return &authstate.User{ID: sess.UserID, Email: sess.Email}, sess.Deadline(), nil
}

// Touch slides the session's idle expiry forward. Writes are skipped
// while less than a quarter of the idle window has been used, so busy
// sessions cost one read per request.
func (u *UserSource) Touch(ctx context.Context, sessionID string) error {
	if u.idle <= 0 {
		return nil
	}

	sess, err := u.live(ctx, sessionID)
	if err != nil || sess == nil {
		return err
	}

	next := NextExpiry(u.now(), u.idle, sess.AbsoluteExpiresAt)
	if next.Sub(sess.ExpiresAt) < u.idle/4 {
		return nil
	}

	sess.ExpiresAt = next
	return u.store.Update(ctx, *sess)
}

// live returns the session if it exists and has not expired.
func (u *UserSource) live(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := u.store.Get(ctx, sessionID)
	if err != nil || sess == nil {
		return nil, err
	}

	if sess.Expired(u.now()) {
		if err := u.store.Delete(ctx, sessionID); err != nil {
			logger.Warn("session: delete expired failed", map[string]any{
				"error": err.Error(),
			})
		}
		return nil, nil
	}

	return sess, nil
}
