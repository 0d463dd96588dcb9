package sessions

import (
	"context"
	"log/slog"
	"net/http"

	apperrors "github.com/tendant/settle-idm/pkg/errors"
)

type contextKey struct{}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFromContext returns the principal set by RequireAuth
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok && p != nil
}

// RequireAuth rejects requests without an authenticated session. A session
// that only holds a pending challenge is not authenticated.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Load(r)
		if err != nil && !IsNotFound(err) {
			slog.Error("Failed to load session", "error", err)
		}
		if !s.Authenticated() {
			apperrors.WriteError(w, r, apperrors.Unauthorized("authentication required"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), s.Principal)))
	})
}

// UserID returns the authenticated user id of the request, or "" when
// the request passed no RequireAuth
func UserID(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return p.UserID.String()
	}
	return ""
}
