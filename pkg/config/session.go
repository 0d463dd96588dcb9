package config

import (
	"time"

	"github.com/tendant/settle-idm/pkg/sessions"
)

// SessionConfig contains the browser session settings.
// Store selects the backend: "memory" (single instance) or "redis".
type SessionConfig struct {
	Store            string        `env:"SESSION_STORE" env-default:"memory"`
	CookieName       string        `env:"SESSION_COOKIE_NAME" env-default:"settle_session"`
	Lifetime         time.Duration `env:"SESSION_LIFETIME" env-default:"24h"`
	RememberLifetime time.Duration `env:"SESSION_REMEMBER_LIFETIME" env-default:"720h"`
	Secure           bool          `env:"SESSION_COOKIE_SECURE" env-default:"false"`
}

// ToCookieConfig converts the config to a sessions.CookieConfig
func (s SessionConfig) ToCookieConfig() sessions.CookieConfig {
	return sessions.CookieConfig{
		Name:             s.CookieName,
		Lifetime:         s.Lifetime,
		RememberLifetime: s.RememberLifetime,
		Secure:           s.Secure,
	}
}

