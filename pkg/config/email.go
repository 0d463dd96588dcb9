package config

import (
	"time"

	"github.com/tendant/settle-idm/pkg/delivery"
	"github.com/tendant/settle-idm/pkg/notification"
)

// EmailConfig holds SMTP relay configuration for transactional mail
type EmailConfig struct {
	Host     string        `env:"MAIL_SERVER" env-default:"smtp.gmail.com"`
	Port     uint16        `env:"MAIL_PORT" env-default:"587"`
	Username string        `env:"MAIL_USERNAME"`
	Password string        `env:"MAIL_PASSWORD"`
	From     string        `env:"MAIL_DEFAULT_SENDER"`
	TLS      bool          `env:"MAIL_USE_TLS" env-default:"true"`
	Timeout  time.Duration `env:"MAIL_TIMEOUT" env-default:"15s"`
}

// IsConfigured returns true if credentials for the relay are present
func (e EmailConfig) IsConfigured() bool {
	return e.Host != "" && e.Username != "" && e.Password != ""
}

// ToSMTPConfig converts the config to a notification.SMTPConfig
func (e EmailConfig) ToSMTPConfig() notification.SMTPConfig {
	from := e.From
	if from == "" {
		from = e.Username
	}
	return notification.SMTPConfig{
		Host:     e.Host,
		Port:     int(e.Port),
		Username: e.Username,
		Password: e.Password,
		From:     from,
		TLS:      e.TLS,
		Timeout:  e.Timeout,
	}
}

// TwilioConfig holds Twilio Verify configuration for the SMS channel
type TwilioConfig struct {
	AccountSid       string        `env:"TWILIO_ACCOUNT_SID"`
	AuthToken        string        `env:"TWILIO_AUTH_TOKEN"`
	VerifyServiceSid string        `env:"TWILIO_VERIFY_SERVICE_SID"`
	Timeout          time.Duration `env:"TWILIO_TIMEOUT" env-default:"15s"`
}

// IsConfigured returns true if Twilio is configured
func (t TwilioConfig) IsConfigured() bool {
	return t.AccountSid != "" && t.AuthToken != "" && t.VerifyServiceSid != ""
}

// ToSMSConfig converts the config to a delivery.SMSConfig
func (t TwilioConfig) ToSMSConfig(countryCode string) delivery.SMSConfig {
	return delivery.SMSConfig{
		AccountSid:       t.AccountSid,
		AuthToken:        t.AuthToken,
		VerifyServiceSid: t.VerifyServiceSid,
		CountryCode:      countryCode,
		Timeout:          t.Timeout,
	}
}

