package app

import (
	"fmt"
	"time"

	"github.com/tendant/settle-idm/pkg/config"
)

// Persistence backends
const (
	PersistencePostgres = "postgres"
	PersistenceMemory   = "memory"
)

// Session store backends
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config is everything the login service reads from the environment
type Config struct {
	BaseURL             string `env:"BASE_URL" env-default:"http://localhost:3000"`
	Persistence         string `env:"PERSISTENCE" env-default:"postgres"`
	RegistrationEnabled bool   `env:"REGISTRATION_ENABLED" env-default:"true"`

	Database  config.DatabaseConfig
	Email     config.EmailConfig
	Twilio    config.TwilioConfig
	TwoFactor config.TwoFactorConfig
	Session   config.SessionConfig
	Redis     config.RedisConfig
	RateLimit config.RateLimitConfig
	Prefix    config.PrefixConfig
	Admin     AdminConfig
}

// AdminConfig seeds the first admin at startup; empty Email disables it
type AdminConfig struct {
	Name     string `env:"ADMIN_NAME" env-default:"Administrator"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
	Phone    string `env:"ADMIN_PHONE"`
}

// DefaultConfig returns an in-memory configuration for tests and local runs
func DefaultConfig() Config {
	return Config{
		BaseURL:             "http://localhost:3000",
		Persistence:         PersistenceMemory,
		RegistrationEnabled: true,
		TwoFactor:           config.DefaultTwoFactorConfig(),
		Session: config.SessionConfig{
			Store:            SessionStoreMemory,
			CookieName:       "settle_session",
			Lifetime:         24 * time.Hour,
			RememberLifetime: 30 * 24 * time.Hour,
		},
		RateLimit:           config.DefaultRateLimitConfig(),
		Prefix:              config.DefaultPrefixes(),
	}
}

// Validate rejects unknown backends and bad prefixes
func (c Config) Validate() error {
	switch c.Persistence {
	case PersistencePostgres, PersistenceMemory:
	default:
		return fmt.Errorf("unknown persistence %q", c.Persistence)
	}
	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	return c.Prefix.Validate()
}

// usesRedis reports whether a Redis client is needed. The OTP issue limiter
// shares it with the session store.
func (c Config) usesRedis() bool {
	return c.Session.Store == SessionStoreRedis
}
