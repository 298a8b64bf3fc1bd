package authstate

import (
	"context"
	"sync"
	"time"

	"storefront/internal/logger"
)

// SessionUsers loads the user behind a session.
// A nil user means the session is missing or no longer valid.
type SessionUsers interface {
	CurrentUser(ctx context.Context, sessionID string) (user *User, expiresAt time.Time, err error)
}

// Hub hands out per-session streams. Subscribers of the same session share
// one Notifier, one broker subscription and one session lookup; a subscriber
// joining after the state is known receives it synchronously.
type Hub struct {
	users  SessionUsers
	broker Broker

	mu       sync.Mutex
	sessions map[string]*hubEntry
}

type hubEntry struct {
	notifier *Notifier
	refs     int
	stop     context.CancelFunc
}

func NewHub(users SessionUsers, broker Broker) *Hub {
	return &Hub{
		users:    users,
		broker:   broker,
		sessions: make(map[string]*hubEntry),
	}
}

// Stream returns the auth-state stream of one session.
// An empty session id yields a stream that reports no user.
func (h *Hub) Stream(sessionID string) Stream {
	return &hubStream{hub: h, sessionID: sessionID}
}

// Publish announces a change of the session's user to every instance
// subscribed through the broker.
func (h *Hub) Publish(ctx context.Context, sessionID string, user *User) error {
	return h.broker.Publish(ctx, sessionID, user)
}

// Active returns the number of sessions with live subscribers.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) acquire(sessionID string) *hubEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.sessions[sessionID]; ok {
		e.refs++
		return e
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &hubEntry{
		notifier: NewNotifier(),
		refs:     1,
		stop:     cancel,
	}
	h.sessions[sessionID] = e

	go h.watch(ctx, sessionID, e.notifier)

	return e
}

func (h *Hub) release(sessionID string, e *hubEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e.refs--
	if e.refs > 0 {
		return
	}
	if cur, ok := h.sessions[sessionID]; ok && cur == e {
		delete(h.sessions, sessionID)
	}
	e.stop()
}

// watch feeds one session's notifier until ctx is cancelled.
func (h *Hub) watch(ctx context.Context, sessionID string, n *Notifier) {
	// 1. Listen before loading so a change between the two is not lost
	changes, closeChanges, err := h.broker.Subscribe(ctx, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn("authstate: broker subscribe failed", map[string]any{
			"error": err.Error(),
		})
	} else {
		defer func() { _ = closeChanges() }()
	}

	// 2. Load the current state
	user, expiresAt, ok := h.lookup(ctx, sessionID)
	if !ok {
		return
	}
	n.Set(user)

	// 3. Forward changes and expiry
	expiry := newExpiry(user, expiresAt)
	defer func() { expiry.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return

		case <-expiry.C():
			// activity may have slid the session forward; look again
			next, nextExpiry, ok := h.lookup(ctx, sessionID)
			if !ok {
				return
			}
			if !sameUser(user, next) {
				n.Set(next)
			}
			user = next
			expiry = newExpiry(next, nextExpiry)

		case u, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			n.Set(u)
			user = u
			expiry.Stop()
			// a pushed login carries no expiry; the session TTL still
			// applies on the next lookup
			expiry = newExpiry(nil, time.Time{})
		}
	}
}

// lookup loads the session's user. Failures and already-passed expiries
// report no user; ok is false only when ctx is done.
func (h *Hub) lookup(ctx context.Context, sessionID string) (*User, time.Time, bool) {
	user, expiresAt, err := h.users.CurrentUser(ctx, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, time.Time{}, false
		}
		logger.Warn("authstate: session lookup failed", map[string]any{
			"error": err.Error(),
		})
		return nil, time.Time{}, true
	}
	if user != nil && !expiresAt.IsZero() && !expiresAt.After(time.Now()) {
		return nil, time.Time{}, true
	}
	return user, expiresAt, true
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type expiryTimer struct {
	t *time.Timer
}

func newExpiry(user *User, at time.Time) expiryTimer {
	if user == nil || at.IsZero() {
		return expiryTimer{}
	}
	return expiryTimer{t: time.NewTimer(time.Until(at))}
}

// C returns nil (never ready) when no expiry is armed.
func (e expiryTimer) C() <-chan time.Time {
	if e.t == nil {
		return nil
	}
	return e.t.C
}

func (e expiryTimer) Stop() {
	if e.t != nil {
		e.t.Stop()
	}
}

type hubStream struct {
	hub       *Hub
	sessionID string
}

func (s *hubStream) Subscribe(fn Listener) Subscription {
	if s.sessionID == "" {
		fn(nil)
		return noopSubscription{}
	}

	e := s.hub.acquire(s.sessionID)
	sub := &hubSubscription{hub: s.hub, sessionID: s.sessionID, entry: e}
	sub.inner = e.notifier.Subscribe(fn)
	return sub
}

type hubSubscription struct {
	hub       *Hub
	sessionID string
	entry     *hubEntry
	inner     Subscription
	once      sync.Once
}

func (s *hubSubscription) Unsubscribe() {
	s.once.Do(func() {
		if s.inner != nil {
			s.inner.Unsubscribe()
		}
		s.hub.release(s.sessionID, s.entry)
	})
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}
