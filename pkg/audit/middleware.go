// Package audit records requests made with an authenticated session
package audit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/tendant/settle-idm/pkg/sessions"
)

// Config holds the configuration for the audit middleware
type Config struct {
	// Logger receives one record per request; slog.Default() when nil
	Logger *slog.Logger
	// Source names the service in every record
	Source string
	// Now is the clock; time.Now when nil
	Now func() time.Time
}

// Middleware handles HTTP request auditing
type Middleware struct {
	config Config
}

// NewMiddleware creates a new audit middleware instance
func NewMiddleware(config Config) *Middleware {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Source == "" {
		config.Source = "settle-idm"
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Middleware{config: config}
}

// AuditEvent represents an audit event
type AuditEvent struct {
	UserID    uuid.UUID
	Role      string
	URI       string
	Method    string
	Status    int
	Duration  time.Duration
	Timestamp time.Time
}

// AuditAuthMiddleware records the principal, route and outcome of each request.
// It must run after sessions.Manager.RequireAuth.
func (m *Middleware) AuditAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event := AuditEvent{
			URI:       r.URL.Path,
			Method:    r.Method,
			Timestamp: m.config.Now(),
		}
		if p, ok := sessions.PrincipalFromContext(r.Context()); ok {
			event.UserID = p.UserID
			event.Role = string(p.Role)
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		event.Status = ww.Status()
		if event.Status == 0 {
			event.Status = http.StatusOK
		}
		event.Duration = m.config.Now().Sub(event.Timestamp)
		m.record(event)
	})
}

func (m *Middleware) record(event AuditEvent) {
	userID := ""
	if event.UserID != uuid.Nil {
		userID = event.UserID.String()
	}
	m.config.Logger.Info("audit",
		"source", m.config.Source,
		"user_id", userID,
		"role", event.Role,
		"method", event.Method,
		"uri", event.URI,
		"status", event.Status,
		"duration", event.Duration,
		"timestamp", event.Timestamp.Format(time.RFC3339),
	)
}
