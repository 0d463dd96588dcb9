package twofa

import (
	"errors"
	"fmt"
	"strings"
)

const (
	TWO_FACTOR_TYPE_EMAIL = "email"
	TWO_FACTOR_TYPE_SMS   = "sms"
)

// Method is the channel a one-time code is delivered over
type Method string

const (
	MethodEmail Method = TWO_FACTOR_TYPE_EMAIL
	MethodSMS   Method = TWO_FACTOR_TYPE_SMS
)

var ErrInvalidMethod = errors.New("invalid 2FA method")

// Methods lists every supported method in display order
var Methods = []Method{MethodEmail, MethodSMS}

func (m Method) String() string {
	return string(m)
}

// Valid reports whether m is one of the supported methods
func (m Method) Valid() bool {
	return ValidateTwoFactorType(string(m)) == nil
}

// ParseMethod converts user input into a Method, case-insensitively
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
	}
	return m, nil
}

func ValidateTwoFactorType(twoFactorType string) error {
	switch twoFactorType {
	case TWO_FACTOR_TYPE_EMAIL, TWO_FACTOR_TYPE_SMS:
		return nil
	default:
		return fmt.Errorf("invalid 2FA type: %s, must be one of: %s, %s",
			twoFactorType, TWO_FACTOR_TYPE_EMAIL, TWO_FACTOR_TYPE_SMS)
	}
}

// Preference is a user's stored 2FA setting
type Preference struct {
	Enabled bool   `json:"enabled"`
	Method  Method `json:"method"`
}

// DefaultPreference is the setting of a newly created user
func DefaultPreference() Preference {
	return Preference{Enabled: false, Method: MethodEmail}
}
