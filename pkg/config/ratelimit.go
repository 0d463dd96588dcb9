package config

import (
	"time"

	"github.com/tendant/settle-idm/pkg/ratelimit"
)

// RateLimitConfig contains the per-IP request limits for the public endpoints.
// Per-user OTP issuance limits live in TwoFactorConfig.
type RateLimitConfig struct {
	PerIPEnabled    bool    `env:"RATELIMIT_PER_IP_ENABLED" env-default:"true"`
	PerIPCapacity   int     `env:"RATELIMIT_PER_IP_CAPACITY" env-default:"100"`
	PerIPRefillRate float64 `env:"RATELIMIT_PER_IP_REFILL_RATE" env-default:"1.67"`

	// Login: brute force protection on password submission
	LoginCapacity   int     `env:"RATELIMIT_LOGIN_CAPACITY" env-default:"10"`
	LoginRefillRate float64 `env:"RATELIMIT_LOGIN_REFILL_RATE" env-default:"0.167"`

	// Verify: submission of OTP codes
	VerifyCapacity   int     `env:"RATELIMIT_VERIFY_CAPACITY" env-default:"10"`
	VerifyRefillRate float64 `env:"RATELIMIT_VERIFY_REFILL_RATE" env-default:"0.167"`

	SignupCapacity   int     `env:"RATELIMIT_SIGNUP_CAPACITY" env-default:"5"`
	SignupRefillRate float64 `env:"RATELIMIT_SIGNUP_REFILL_RATE" env-default:"0.017"`

	IncludeHeaders bool `env:"RATELIMIT_INCLUDE_HEADERS" env-default:"true"`
}

// DefaultRateLimitConfig returns a RateLimitConfig with sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		PerIPEnabled:     true,
		PerIPCapacity:    100,
		PerIPRefillRate:  1.67,
		LoginCapacity:    10,
		LoginRefillRate:  0.167,
		VerifyCapacity:   10,
		VerifyRefillRate: 0.167,
		SignupCapacity:   5,
		SignupRefillRate: 0.017,
		IncludeHeaders:   true,
	}
}

// ToMiddlewareConfig builds the ratelimit middleware config. Endpoint keys are
// "METHOD path" as seen by the middleware, so callers pass the mount prefixes.
func (c RateLimitConfig) ToMiddlewareConfig(authPrefix, signupPrefix string) *ratelimit.Config {
	login := ratelimit.Limit{Capacity: c.LoginCapacity, RefillRate: c.LoginRefillRate}
	verify := ratelimit.Limit{Capacity: c.VerifyCapacity, RefillRate: c.VerifyRefillRate}
	signup := ratelimit.Limit{Capacity: c.SignupCapacity, RefillRate: c.SignupRefillRate}

	mc := &ratelimit.Config{
		Endpoints: map[string]ratelimit.Limit{
			"POST " + authPrefix + "/login":      login,
			"POST " + authPrefix + "/2fa/verify": verify,
			"POST " + signupPrefix + "/customer": signup,
			"POST " + signupPrefix + "/seller":   signup,
		},
		BucketTTL:      time.Hour,
		IncludeHeaders: c.IncludeHeaders,
	}
	if c.PerIPEnabled {
		mc.PerIP = &ratelimit.Limit{Capacity: c.PerIPCapacity, RefillRate: c.PerIPRefillRate}
	}
	return mc
}

