package authstate

import "sync"

// Notifier is an in-memory Stream holding one process-wide auth state.
//
// Until the first Set the state is unknown and subscribers wait. Once known,
// Subscribe replays the current user synchronously, before it returns.
type Notifier struct {
	// emitMu orders replays and fan-outs so a subscriber never sees
	// an older state after a newer one.
	emitMu sync.Mutex

	mu        sync.Mutex
	known     bool
	user      *User
	listeners map[uint64]Listener
	nextID    uint64
}

func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[uint64]Listener)}
}

func (n *Notifier) Subscribe(fn Listener) Subscription {
	n.emitMu.Lock()
	defer n.emitMu.Unlock()

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	known, user := n.known, n.user
	n.mu.Unlock()

	sub := &notifierSub{n: n, id: id}
	if known {
		fn(user)
	}
	return sub
}

// Set records the current user and notifies every live listener.
func (n *Notifier) Set(user *User) {
	n.emitMu.Lock()
	defer n.emitMu.Unlock()

	n.mu.Lock()
	n.known = true
	n.user = user
	ids := make([]uint64, 0, len(n.listeners))
	for id := range n.listeners {
		ids = append(ids, id)
	}
	n.mu.Unlock()

	for _, id := range ids {
		// a listener may have unsubscribed during this fan-out
		n.mu.Lock()
		fn, ok := n.listeners[id]
		n.mu.Unlock()
		if ok {
			fn(user)
		}
	}
}

// Current returns the last user passed to Set and whether Set was called.
func (n *Notifier) Current() (*User, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.user, n.known
}

// Listeners returns the number of live subscriptions.
func (n *Notifier) Listeners() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

type notifierSub struct {
	n    *Notifier
	id   uint64
	once sync.Once
}

func (s *notifierSub) Unsubscribe() {
	s.once.Do(func() {
		s.n.mu.Lock()
		delete(s.n.listeners, s.id)
		s.n.mu.Unlock()
	})
}
