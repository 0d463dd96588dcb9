// Package sessions keeps browser login state on the server. The browser only
// holds an opaque random token in a cookie; pending 2FA challenges and the
// authenticated principal are stored behind it in a Store.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tendant/settle-idm/pkg/utils"
)

const tokenBytes = 32

// CookieConfig controls the session cookie and server-side lifetime
type CookieConfig struct {
	Name             string
	Lifetime         time.Duration // server TTL of ordinary sessions
	RememberLifetime time.Duration // server TTL and cookie Max-Age with remember-me
	Secure           bool
}

// DefaultCookieConfig returns a 24h session with a 30-day remember-me
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:             "settle_session",
		Lifetime:         24 * time.Hour,
		RememberLifetime: 30 * 24 * time.Hour,
	}
}

// Manager issues, rotates and clears session cookies
type Manager struct {
	store  Store
	cookie CookieConfig
	now    func() time.Time
}

type ManagerOption func(*Manager)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, cookie CookieConfig, opts ...ManagerOption) *Manager {
	d := DefaultCookieConfig()
	if cookie.Name == "" {
		cookie.Name = d.Name
	}
	if cookie.Lifetime <= 0 {
		cookie.Lifetime = d.Lifetime
	}
	if cookie.RememberLifetime <= 0 {
		cookie.RememberLifetime = d.RememberLifetime
	}

	m := &Manager{store: store, cookie: cookie, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load returns the session named by the request cookie, or
// ErrSessionNotFound when there is none.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookie.Name)
	if err != nil || c.Value == "" {
		return nil, ErrSessionNotFound
	}
	s, err := m.store.Get(r.Context(), c.Value)
	if err != nil {
		return nil, err
	}
	if !m.now().Before(s.ExpiresAt) {
		_ = m.store.Delete(r.Context(), s.Token)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Start replaces any session of the request with a fresh one holding pending.
// The pending challenge is clamped to the session lifetime.
func (m *Manager) Start(w http.ResponseWriter, r *http.Request, pending *PendingChallenge) (*Session, error) {
	m.discard(r)

	now := m.now()
	s, err := m.newSession(now, m.cookie.Lifetime)
	if err != nil {
		return nil, err
	}
	if pending.ExpiresAt.After(s.ExpiresAt) {
		pending.ExpiresAt = s.ExpiresAt
	}
	s.Pending = pending
	s.RememberMe = pending.RememberMe

	if err := m.store.Save(r.Context(), s); err != nil {
		return nil, err
	}
	m.writeCookie(w, s.Token, 0)
	return s, nil
}

// Save persists changes to an existing session, such as a failed attempt
func (m *Manager) Save(ctx context.Context, s *Session) error {
	return m.store.Save(ctx, s)
}

// SavePending writes next back into the open challenge of the session named
// by token. Wrong codes counted since before are added to the stored count,
// so concurrent requests on one challenge do not lose attempts. When the
// session was promoted or destroyed meanwhile nothing is written and
// ErrSessionNotFound is returned.
func (m *Manager) SavePending(ctx context.Context, token string, next PendingChallenge, before int) error {
	return m.store.Update(ctx, token, func(s *Session) error {
		if s.Pending == nil {
			return ErrSessionNotFound
		}
		attempts := next.FailedAttempts
		if added := next.FailedAttempts - before; added > 0 {
			attempts = s.Pending.FailedAttempts + added
		}
		merged := next
		merged.FailedAttempts = attempts
		s.Pending = &merged
		return nil
	})
}

// Promote authenticates the request under a new token. The previous session,
// pending challenge included, is deleted.
func (m *Manager) Promote(w http.ResponseWriter, r *http.Request, principal Principal, remember bool) (*Session, error) {
	m.discard(r)

	lifetime := m.cookie.Lifetime
	if remember {
		lifetime = m.cookie.RememberLifetime
	}

	now := m.now()
	s, err := m.newSession(now, lifetime)
	if err != nil {
		return nil, err
	}
	if principal.AuthenticatedAt.IsZero() {
		principal.AuthenticatedAt = now
	}
	s.Principal = &principal
	s.RememberMe = remember

	if err := m.store.Save(r.Context(), s); err != nil {
		return nil, err
	}

	maxAge := 0
	if remember {
		maxAge = int(lifetime.Seconds())
	}
	m.writeCookie(w, s.Token, maxAge)
	return s, nil
}

// Destroy deletes the request's session and expires the cookie. Calling it
// without a session is not an error.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	var err error
	if c, cerr := r.Cookie(m.cookie.Name); cerr == nil && c.Value != "" {
		err = m.store.Delete(r.Context(), c.Value)
	}
	m.writeCookie(w, "", -1)
	return err
}

func (m *Manager) newSession(now time.Time, lifetime time.Duration) (*Session, error) {
	token, err := utils.RandomToken(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}
	return &Session{
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}, nil
}

func (m *Manager) discard(r *http.Request) {
	if c, err := r.Cookie(m.cookie.Name); err == nil && c.Value != "" {
		_ = m.store.Delete(r.Context(), c.Value)
	}
}

// maxAge 0 writes a browser-session cookie, negative deletes it
func (m *Manager) writeCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// IsNotFound reports whether err means the request has no usable session
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
