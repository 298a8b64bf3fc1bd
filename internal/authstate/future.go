package authstate

import (
	"context"
	"sync"
)

// Future is a single-assignment result of a one-shot resolution.
// Any number of goroutines may wait on it.
type Future struct {
	done   chan struct{}
	once   sync.Once
	user   *User
	cancel func()
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) fulfill(user *User) {
	f.once.Do(func() {
		f.user = user
		close(f.done)
	})
}

// Done is closed once the future holds a value.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the resolved user and true, or nil and false while pending.
func (f *Future) Result() (*User, bool) {
	select {
	case <-f.done:
		return f.user, true
	default:
		return nil, false
	}
}

// Wait blocks until the future resolves or ctx ends.
// A ctx error leaves the resolution running; call Cancel to release it.
func (f *Future) Wait(ctx context.Context) (*User, error) {
	select {
	case <-f.done:
		return f.user, nil
	case <-ctx.Done():
		// prefer a value that raced with cancellation
		if u, ok := f.Result(); ok {
			return u, nil
		}
		return nil, ctx.Err()
	}
}

// Cancel releases the stream subscription if no notification has arrived
// yet. A cancelled future never resolves. Cancel after resolution is a no-op.
func (f *Future) Cancel() {
	if f.cancel != nil {
		f.cancel()
	}
}
