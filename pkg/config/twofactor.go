package config

import "time"

// TwoFactorConfig contains the OTP challenge settings.
//
// Environment variables:
//   - OTP_EXPIRY_MINUTES: lifetime of an email code (default: 10)
//   - MAX_OTP_ATTEMPTS: wrong codes accepted per issued code (default: 3)
//   - RATE_LIMIT_PER_MINUTE: codes a user may request per minute (default: 5)
//   - PHONE_DEFAULT_COUNTRY_CODE: prefix for domestic numbers (default: 91)
//   - PENDING_LOGIN_TTL: how long a password-verified login may wait for its code (default: 15m)
//   - OTP_PURGE_INTERVAL: period of the expired code cleanup, 0 disables it (default: 1h)
type TwoFactorConfig struct {
	ExpiryMinutes      int           `env:"OTP_EXPIRY_MINUTES" env-default:"10"`
	MaxAttempts        int           `env:"MAX_OTP_ATTEMPTS" env-default:"3"`
	RequestsPerMinute  int           `env:"RATE_LIMIT_PER_MINUTE" env-default:"5"`
	DefaultCountryCode string        `env:"PHONE_DEFAULT_COUNTRY_CODE" env-default:"91"`
	PendingTTL         time.Duration `env:"PENDING_LOGIN_TTL" env-default:"15m"`
	PurgeInterval      time.Duration `env:"OTP_PURGE_INTERVAL" env-default:"1h"`
}

// DefaultTwoFactorConfig returns a TwoFactorConfig with the standard limits
func DefaultTwoFactorConfig() TwoFactorConfig {
	return TwoFactorConfig{
		ExpiryMinutes:      10,
		MaxAttempts:        3,
		RequestsPerMinute:  5,
		DefaultCountryCode: "91",
		PendingTTL:         15 * time.Minute,
		PurgeInterval:      time.Hour,
	}
}

// Expiry returns the code lifetime as a duration
func (c TwoFactorConfig) Expiry() time.Duration {
	if c.ExpiryMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

