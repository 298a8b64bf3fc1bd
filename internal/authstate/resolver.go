package authstate

import "sync"

// Resolver resolves the current user of a single stream.
type Resolver struct {
	stream Stream
}

func NewResolver(stream Stream) *Resolver {
	return &Resolver{stream: stream}
}

// ResolveCurrentUser is ResolveCurrentUser(r.stream).
func (r *Resolver) ResolveCurrentUser() *Future {
	return ResolveCurrentUser(r.stream)
}

// ResolveCurrentUser subscribes to stream, takes the first notification,
// unsubscribes and fulfills the returned future with that value.
//
// The subscription is released exactly once and always before the future
// resolves. Notifications after the first are ignored. If the stream never
// emits the future stays pending; compose a timeout with Future.Wait and
// release the subscription with Future.Cancel.
func ResolveCurrentUser(stream Stream) *Future {
	r := &resolution{future: newFuture()}
	r.future.cancel = r.abandon

	sub := stream.Subscribe(r.notify)
	r.bind(sub)

	return r.future
}

// resolution is the state of one ResolveCurrentUser call.
// Subscribe may call notify before bind runs, so the first value is parked
// until the handle is bound.
type resolution struct {
	mu       sync.Mutex
	sub      Subscription
	bound    bool
	fired    bool
	released bool
	parked   *User

	future *Future
}

func (r *resolution) notify(user *User) {
	r.mu.Lock()
	if r.fired || r.released {
		r.mu.Unlock()
		return
	}
	r.fired = true

	if !r.bound {
		r.parked = user
		r.mu.Unlock()
		return
	}

	sub := r.sub
	r.released = true
	r.mu.Unlock()

	release(sub)
	r.future.fulfill(user)
}

func (r *resolution) bind(sub Subscription) {
	r.mu.Lock()
	r.sub = sub
	r.bound = true

	if !r.fired {
		r.mu.Unlock()
		return
	}

	user := r.parked
	r.parked = nil
	r.released = true
	r.mu.Unlock()

	release(sub)
	r.future.fulfill(user)
}

func (r *resolution) abandon() {
	r.mu.Lock()
	if r.fired || r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	sub := r.sub
	r.mu.Unlock()

	release(sub)
}

func release(sub Subscription) {
	if sub != nil {
		sub.Unsubscribe()
	}
}
