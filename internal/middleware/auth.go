package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/internal/authstate"
	"storefront/internal/logger"
	"storefront/internal/session"
)

// unexported, collision-proof context keys
type (
	userContextKeyType      struct{}
	sessionIDContextKeyType struct{}
)

var (
	userKey      = userContextKeyType{}
	sessionIDKey = sessionIDContextKeyType{}
)

// UserFromContext returns the user resolved for this request.
// ok is false when Attach did not run; user is nil when signed out.
func UserFromContext(ctx context.Context) (user *authstate.User, ok bool) {
	user, ok = ctx.Value(userKey).(*authstate.User)
	return user, ok
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	user, _ := UserFromContext(ctx)
	if user == nil {
		return "", false
	}
	return user.ID, true
}

// SessionIDFromContext returns the session cookie value seen by Attach.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// WithUser stores user in ctx the way Attach does.
func WithUser(ctx context.Context, sessionID string, user *authstate.User) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return context.WithValue(ctx, userKey, user)
}

// StreamSource hands out the auth-state stream of a session.
type StreamSource interface {
	Stream(sessionID string) authstate.Stream
}

// SessionToucher slides a session's idle expiry forward.
// *session.UserSource implements it.
type SessionToucher interface {
	Touch(ctx context.Context, sessionID string) error
}

type AuthMiddleware struct {
	streams StreamSource
	timeout time.Duration
	toucher SessionToucher
}

type Option func(*AuthMiddleware)

// WithSessionTouch keeps sessions of signed-in requests alive.
func WithSessionTouch(t SessionToucher) Option {
	return func(a *AuthMiddleware) { a.toucher = t }
}

func NewAuthMiddleware(streams StreamSource, timeout time.Duration, opts ...Option) *AuthMiddleware {
	a := &AuthMiddleware{streams: streams, timeout: timeout}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Attach resolves the request's user once and stores it in the context.
// Signed-out requests pass through with a nil user.
func (a *AuthMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Read session cookie
		sessionID := session.IDFromRequest(r)

		// 2. Resolve the session's current user, bounded by the timeout
		user := a.resolve(r.Context(), sessionID)

		// 3. Activity extends the session
		if user != nil {
			a.touch(r.Context(), sessionID)
		}

		// 4. Continue with the user attached
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), sessionID, user)))
	})
}

// RequireAuth is Attach that rejects signed-out requests with 401.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return a.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (a *AuthMiddleware) resolve(ctx context.Context, sessionID string) *authstate.User {
	if sessionID == "" {
		return nil
	}

	future := authstate.ResolveCurrentUser(a.streams.Stream(sessionID))

	waitCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	user, err := future.Wait(waitCtx)
	if err != nil {
		future.Cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("auth state not resolved in time", map[string]any{
				"timeout_ms": a.timeout.Milliseconds(),
			})
		}
		return nil
	}

	return user
}

func (a *AuthMiddleware) touch(ctx context.Context, sessionID string) {
	if a.toucher == nil {
		return
	}
	if err := a.toucher.Touch(ctx, sessionID); err != nil {
		logger.Warn("session touch failed", map[string]any{"error": err.Error()})
	}
}
