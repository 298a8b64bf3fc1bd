package authstate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// scriptedStream is a Stream whose emissions are driven by the test.
type scriptedStream struct {
	mu          sync.Mutex
	listeners   []Listener
	subscribes  atomic.Int32
	unsubscribe atomic.Int32

	// emitOnSubscribe, when set, is delivered synchronously inside Subscribe.
	emitOnSubscribe func(fn Listener)
}

func (s *scriptedStream) Subscribe(fn Listener) Subscription {
	s.subscribes.Add(1)

	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	s.mu.Unlock()

	if s.emitOnSubscribe != nil {
		s.emitOnSubscribe(fn)
	}

	return &scriptedSub{stream: s, idx: idx}
}

// emit delivers user to every listener that is still registered, mirroring
// a provider that keeps calling until deregistration.
func (s *scriptedStream) emit(user *User) {
	s.mu.Lock()
	ls := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for i, fn := range ls {
		s.mu.Lock()
		live := s.listeners[i] != nil
		s.mu.Unlock()
		if live {
			fn(user)
		}
	}
}

// emitRaw delivers user to every listener ever registered, ignoring
// deregistration, to check the resolver's own guard.
func (s *scriptedStream) emitRaw(user *User) {
	s.mu.Lock()
	ls := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range ls {
		if fn != nil {
			fn(user)
		}
	}
}

type scriptedSub struct {
	stream *scriptedStream
	idx    int
}

func (s *scriptedSub) Unsubscribe() {
	s.stream.unsubscribe.Add(1)
	s.stream.mu.Lock()
	s.stream.listeners[s.idx] = nil
	s.stream.mu.Unlock()
}

// memoryBroker is an in-process Broker.
type memoryBroker struct {
	mu   sync.Mutex
	subs map[string][]chan *User
}

func newMemoryBroker() *memoryBroker {
	return &memoryBroker{subs: make(map[string][]chan *User)}
}

func (b *memoryBroker) Publish(ctx context.Context, sessionID string, user *User) error {
	b.mu.Lock()
	chans := append([]chan *User(nil), b.subs[sessionID]...)
	b.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- user:
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil
}

func (b *memoryBroker) Subscribe(ctx context.Context, sessionID string) (<-chan *User, func() error, error) {
	ch := make(chan *User, 8)

	b.mu.Lock()
	b.subs[sessionID] = append(b.subs[sessionID], ch)
	b.mu.Unlock()

	var once sync.Once
	closeFn := func() error {
		once.Do(func() {
			b.mu.Lock()
			list := b.subs[sessionID]
			for i, c := range list {
				if c == ch {
					b.subs[sessionID] = append(list[:i], list[i+1:]...)
					break
				}
			}
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
			b.mu.Unlock()
		})
		return nil
	}
	return ch, closeFn, nil
}

func (b *memoryBroker) subscribers(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

// staticUsers resolves sessions from a fixed table.
type staticUsers struct {
	mu      sync.Mutex
	users   map[string]*User
	expires map[string]time.Time
	lookups atomic.Int32
	block   chan struct{}
	err     error
}

func (s *staticUsers) CurrentUser(ctx context.Context, sessionID string) (*User, time.Time, error) {
	s.lookups.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, time.Time{}, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, time.Time{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[sessionID], s.expires[sessionID], nil
}

func (s *staticUsers) extend(sessionID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires[sessionID] = at
}
