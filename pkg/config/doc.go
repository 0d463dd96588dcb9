// Package config holds the typed configuration sections of the Settle Space
// login service.
//
// Each section carries cleanenv struct tags so a command can embed it in its
// own Config and call cleanenv.ReadEnv:
//
//	var cfg struct {
//		Mail   config.EmailConfig
//		Twilio config.TwilioConfig
//	}
//	if err := cleanenv.ReadEnv(&cfg); err != nil { ... }
//
// Conversion methods (ToSMTPConfig, ToSMSConfig, ToCookieConfig,
// ToMiddlewareConfig) translate a section into the option struct of the
// package that consumes it.
package config
