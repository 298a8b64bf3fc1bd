package handler

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"storefront/internal/auth"
	"storefront/internal/auth/credentials"
	"storefront/internal/authstate"
	"storefront/internal/session"
)

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]session.Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]session.Session{}}
}

func (m *memSessions) Create(_ context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s
	return nil
}

func (m *memSessions) Get(_ context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memSessions) Update(ctx context.Context, s session.Session) error {
	return m.Create(ctx, s)
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// memHub keeps one Notifier per session and records publishes.
type memHub struct {
	mu        sync.Mutex
	notifiers map[string]*authstate.Notifier
	published []publishCall
}

type publishCall struct {
	sessionID string
	user      *authstate.User
}

func newMemHub() *memHub {
	return &memHub{notifiers: map[string]*authstate.Notifier{}}
}

func (h *memHub) notifier(sessionID string) *authstate.Notifier {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, ok := h.notifiers[sessionID]
	if !ok {
		n = authstate.NewNotifier()
		if sessionID == "" {
			n.Set(nil)
		}
		h.notifiers[sessionID] = n
	}
	return n
}

func (h *memHub) Publish(_ context.Context, sessionID string, user *authstate.User) error {
	h.mu.Lock()
	h.published = append(h.published, publishCall{sessionID, user})
	h.mu.Unlock()
	h.notifier(sessionID).Set(user)
	return nil
}

func (h *memHub) Stream(sessionID string) authstate.Stream {
	return h.notifier(sessionID)
}

func (h *memHub) calls() []publishCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]publishCall(nil), h.published...)
}

type fakeProvider struct {
	identity *auth.Identity
	err      error

	gotCode     string
	gotVerifier string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) AuthCodeURL(state, challenge string) string {
	return "https://idp.example.com/auth?" + url.Values{
		"state":          {state},
		"code_challenge": {challenge},
	}.Encode()
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code, verifier string) (*auth.Identity, error) {
	p.gotCode, p.gotVerifier = code, verifier
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

type fakeResolver struct {
	userID string
	err    error
}

func (r *fakeResolver) Resolve(context.Context, *auth.Identity) (string, error) {
	return r.userID, r.err
}

// fakeCredentials accepts any password equal to "correct-horse".
type fakeCredentials struct {
	mu       sync.Mutex
	accounts map[string]string
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{accounts: map[string]string{}}
}

func (f *fakeCredentials) Register(_ context.Context, email, password string) (*credentials.Account, error) {
	if len(password) < credentials.MinPasswordLen {
		return nil, credentials.ErrPasswordTooShort
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		return nil, credentials.ErrAlreadyRegistered
	}
	id := "user-" + email
	f.accounts[email] = id
	return &credentials.Account{UserID: id, Email: email}, nil
}

func (f *fakeCredentials) Authenticate(_ context.Context, email, password string) (*credentials.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.accounts[email]
	if !ok || password != "correct-horse" {
		return nil, credentials.ErrInvalidCredentials
	}
	return &credentials.Account{UserID: id, Email: email}, nil
}

var errExchange = errors.New("exchange failed")
