// Package authstate resolves the signed-in user from push-based
// authentication-state streams.
package authstate

// User is the identity reported by an auth-state stream.
// A nil *User means no user is signed in.
type User struct {
	ID    string `json:"user_id"`
	Email string `json:"email,omitempty"`
}

// Listener receives the current user whenever it changes.
type Listener func(user *User)

// Subscription is a live registration with a Stream.
type Subscription interface {
	Unsubscribe()
}

// Stream reports the current user and every later change.
// Subscribe must emit at least once with the already-known state; it may
// do so before returning the Subscription.
type Stream interface {
	Subscribe(fn Listener) Subscription
}
